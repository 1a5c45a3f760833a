// Package config holds the immutable process configuration for master and
// agent. Precedence: defaults, then YAML file, then PICCOLO_* environment
// variables, then command-line flags applied in cmd. Components receive the
// struct by value; there are no process-wide configuration singletons.
package config
