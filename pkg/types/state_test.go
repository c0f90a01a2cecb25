package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/switchboard/pkg/types"
)

func TestValidExperimentStates(t *testing.T) {
	for _, state := range []string{"entitled", "active", "completed"} {
		assert.True(t, types.IsValidExperimentState(state), state)
	}
	for _, state := range []string{"", "planning", "Active", "done"} {
		assert.False(t, types.IsValidExperimentState(state), state)
	}

	parsed, ok := types.ParseExperimentState("active")
	assert.True(t, ok)
	assert.Equal(t, types.StateActive, parsed)
}

func TestIsValidStateTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to types.ExperimentState
		want     bool
	}{
		{"entitled_to_active", types.StateEntitled, types.StateActive, true},
		{"entitled_to_completed", types.StateEntitled, types.StateCompleted, false},
		{"active_to_completed", types.StateActive, types.StateCompleted, true},
		{"active_to_active", types.StateActive, types.StateActive, false},
		{"active_reset", types.StateActive, types.StateEntitled, true},
		{"completed_to_active", types.StateCompleted, types.StateActive, false},
		{"completed_to_completed", types.StateCompleted, types.StateCompleted, false},
		{"completed_reset", types.StateCompleted, types.StateEntitled, true},
		{"unknown_from", "paused", types.StateActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types.IsValidStateTransition(tt.from, tt.to))
		})
	}
}

func TestExperimentStateFollowsTransitionTable(t *testing.T) {
	exp, err := types.NewExperiment("checkout", types.Values{types.KeyCohort: types.StringValue("A")})
	if err != nil {
		t.Fatal(err)
	}

	prev := exp.State()
	assert.Equal(t, types.StateEntitled, prev)

	steps := []func() bool{exp.Start, exp.Complete}
	for _, step := range steps {
		assert.True(t, step())
		assert.True(t, types.IsValidStateTransition(prev, exp.State()))
		prev = exp.State()
	}
	assert.Equal(t, types.StateCompleted, prev)

	assert.NoError(t, exp.ClearState())
	assert.True(t, types.IsValidStateTransition(prev, exp.State()))
}
