// Package events provides an in-process broker fanning out cluster
// state-change notifications: node lifecycle transitions from the
// registry and derived-state changes from the state manager. The
// reconcile dispatcher subscribes for package.error events.
package events
