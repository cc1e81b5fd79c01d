// Package logging provides zerolog-backed structured logging for the
// coordinator: a process-wide logger plus per-component and per-entity
// child loggers (worker, barrier, checkpoint).
package logging
