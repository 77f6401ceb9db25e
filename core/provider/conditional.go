package provider

// ConditionalStatus enumerates the outcome of a version-gated operation
// (spec §4.5.5/§4.5.7).
type ConditionalStatus int

const (
	ConditionalSuccess ConditionalStatus = iota
	ConditionalNotFound
	ConditionalVersionMismatch
)

// ConditionalResult is the outcome of ConditionalUpdate/ConditionalPatch.
// Resource and the version fields are populated only for the relevant
// Status.
type ConditionalResult struct {
	Status   ConditionalStatus
	Resource map[string]any
	Expected string
	Current  string
}
