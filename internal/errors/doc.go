// Package errors defines the error taxonomy shared by the orchestration
// layers: spawn failures, coordinator call failures, wire protocol and
// encoding errors, plus sentinel errors for lifecycle misuse.
package errors
