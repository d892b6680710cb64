// Package process owns individual backend server subprocesses: spawning
// with async pipes, pumping stdout lines, draining stderr, and
// graceful-then-forced termination.
package process
