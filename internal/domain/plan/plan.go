package plan

import "errors"

// Step is one atomic unit of work produced by the planner. Immutable once
// issued; its ID stays stable for audit correlation across repair attempts.
type Step struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Plan is an ordered list of steps for a goal.
type Plan struct {
	Goal  string `json:"goal"`
	Steps []Step `json:"steps"`
}

// ErrNoSteps marks a plan the orchestrator cannot act on.
var ErrNoSteps = errors.New("plan contains no steps")

// Validate checks the minimal contract the orchestrator relies on.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	return nil
}

// RepairPlan ties a revised plan to the repair attempt that produced it.
type RepairPlan struct {
	Attempt int  `json:"attempt"`
	Plan    Plan `json:"plan"`
}

// Combined groups the initial plan with every repair plan of a run; the
// whole structure is sent to the reviewer as planner context.
type Combined struct {
	InitialPlan Plan         `json:"initial_plan"`
	RepairPlans []RepairPlan `json:"repair_plans"`
}

// Final returns the most recently issued plan of the run.
func (c *Combined) Final() Plan {
	if n := len(c.RepairPlans); n > 0 {
		return c.RepairPlans[n-1].Plan
	}
	return c.InitialPlan
}
