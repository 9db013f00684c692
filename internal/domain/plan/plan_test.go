package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	empty := Plan{Goal: "g"}
	require.ErrorIs(t, empty.Validate(), ErrNoSteps)

	ok := Plan{Goal: "g", Steps: []Step{{ID: 1, Description: "d"}}}
	assert.NoError(t, ok.Validate())
}

func TestCombinedFinal(t *testing.T) {
	initial := Plan{Goal: "g", Steps: []Step{{ID: 1, Description: "first"}}}
	c := Combined{InitialPlan: initial}
	assert.Equal(t, initial, c.Final())

	second := Plan{Goal: "g", Steps: []Step{{ID: 2, Description: "fix"}}}
	c.RepairPlans = append(c.RepairPlans, RepairPlan{Attempt: 1, Plan: second})
	assert.Equal(t, second, c.Final())

	third := Plan{Goal: "g", Steps: []Step{{ID: 3, Description: "fix again"}}}
	c.RepairPlans = append(c.RepairPlans, RepairPlan{Attempt: 2, Plan: third})
	assert.Equal(t, third, c.Final())
}
