package types

// ExperimentState is the lifecycle state derived from the persisted flags.
type ExperimentState string

// Lifecycle state constants for experiments
const (
	StateEntitled  ExperimentState = "entitled"  // Eligible, not started
	StateActive    ExperimentState = "active"    // Started, not completed
	StateCompleted ExperimentState = "completed" // Finished
)

// ValidExperimentStates contains all valid lifecycle state values
var ValidExperimentStates = []ExperimentState{
	StateEntitled,
	StateActive,
	StateCompleted,
}

// IsValidExperimentState checks if the given state is a valid lifecycle state.
func IsValidExperimentState(state string) bool {
	for _, validState := range ValidExperimentStates {
		if ExperimentState(state) == validState {
			return true
		}
	}
	return false
}

// ParseExperimentState converts a string to an ExperimentState.
func ParseExperimentState(state string) (ExperimentState, bool) {
	if !IsValidExperimentState(state) {
		return "", false
	}
	return ExperimentState(state), true
}

// IsValidStateTransition validates experiment state transitions.
//
// Valid transitions:
//
//	entitled -> active
//	active -> completed | entitled
//	completed -> entitled
//
// The transitions back to entitled are ClearState. entitled -> entitled is
// also accepted because clearing an untouched experiment is a no-op.
func IsValidStateTransition(currentState, newState ExperimentState) bool {
	switch currentState {
	case StateEntitled:
		return newState == StateActive || newState == StateEntitled

	case StateActive:
		return newState == StateCompleted || newState == StateEntitled

	case StateCompleted:
		return newState == StateEntitled // Terminal apart from a reset

	default:
		return false // Unknown current state
	}
}
