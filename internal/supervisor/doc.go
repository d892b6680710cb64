// Package supervisor manages the static name→server-process map: starting
// and stopping servers with serialized per-name transitions, status
// reporting, and health checks that report but never remediate.
package supervisor
