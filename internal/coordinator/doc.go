// Package coordinator correlates requests with responses over one server's
// pipes: monotonic ids, a pending map routed by a per-server dispatch
// goroutine, and per-call timeout budgets that never kill the subprocess.
package coordinator
