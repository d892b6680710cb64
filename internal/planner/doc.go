// Package planner declares and executes composite operations: ordered
// stages of concurrent coordinator calls whose results are merged by role,
// with per-sub-call failures recorded instead of aborting the operation.
package planner
