// Package log provides the zerolog-based logging surface for Piccolo.
// Components take child loggers via WithComponent (and narrow further
// with WithNode/WithResource); Failure logs classified errors with the
// errdefs taxonomy code attached, at warn for retryable transport loss
// and error for everything else.
package log
