package workflow

import (
	"strconv"

	"agentflow/pkg/models"
)

// Plan is a validated workflow with its dependency graph resolved into
// indices over the workflow's step list.
type Plan struct {
	mode  models.ExecutionMode
	steps []models.Step
	index map[string]int
	deps  [][]int
	order []int
}

// visit states for the depth-first cycle search.
const (
	unvisited = iota
	visiting
	done
)

// Compile validates w and resolves its dependencies. The returned plan keeps
// its own copy of the step list.
func Compile(w *models.Workflow) (*Plan, error) {
	p := &Plan{
		mode:  w.ExecutionMode,
		steps: append([]models.Step(nil), w.Steps...),
		index: make(map[string]int, len(w.Steps)),
	}
	var violations []Violation

	for i, s := range p.steps {
		if s.ID == "" {
			violations = append(violations, Violation{Kind: ViolationEmptyID, StepIDs: []string{strconv.Itoa(i)}})
			continue
		}
		if _, dup := p.index[s.ID]; dup {
			violations = append(violations, Violation{Kind: ViolationDuplicateID, StepIDs: []string{s.ID}})
			continue
		}
		p.index[s.ID] = i
	}

	p.deps = make([][]int, len(p.steps))
	for i, s := range p.steps {
		for _, dep := range s.Dependencies {
			j, ok := p.index[dep]
			if !ok {
				violations = append(violations, Violation{Kind: ViolationDangling, StepIDs: []string{s.ID, dep}})
				continue
			}
			p.deps[i] = append(p.deps[i], j)
		}
	}

	// Cycle detection needs a well-defined graph.
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	if cycles := p.sort(); len(cycles) > 0 {
		return nil, &ValidationError{Violations: cycles}
	}
	return p, nil
}

// sort fills p.order with a topological order and returns one violation per
// cycle encountered.
func (p *Plan) sort() []Violation {
	state := make([]int, len(p.steps))
	var stack []int
	var cycles []Violation

	var visit func(i int)
	visit = func(i int) {
		state[i] = visiting
		stack = append(stack, i)
		for _, j := range p.deps[i] {
			switch state[j] {
			case visiting:
				cycles = append(cycles, Violation{Kind: ViolationCycle, StepIDs: p.cycleFrom(stack, j)})
			case unvisited:
				visit(j)
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		p.order = append(p.order, i)
	}

	for i := range p.steps {
		if state[i] == unvisited {
			visit(i)
		}
	}
	return cycles
}

// cycleFrom returns the step ids on the stack from the first occurrence of
// start to the top.
func (p *Plan) cycleFrom(stack []int, start int) []string {
	var ids []string
	for k := len(stack) - 1; k >= 0; k-- {
		if stack[k] == start {
			for _, i := range stack[k:] {
				ids = append(ids, p.steps[i].ID)
			}
			break
		}
	}
	return ids
}

// Mode returns the execution mode of the compiled workflow.
func (p *Plan) Mode() models.ExecutionMode { return p.mode }

// Len returns the number of steps.
func (p *Plan) Len() int { return len(p.steps) }

// Has reports whether stepID names a step of the workflow.
func (p *Plan) Has(stepID string) bool {
	_, ok := p.index[stepID]
	return ok
}

// Step returns the step with the given id.
func (p *Plan) Step(stepID string) (models.Step, bool) {
	i, ok := p.index[stepID]
	if !ok {
		return models.Step{}, false
	}
	return p.steps[i], true
}

// Dependencies returns the ids of the steps stepID depends on.
func (p *Plan) Dependencies(stepID string) []string {
	i, ok := p.index[stepID]
	if !ok {
		return nil
	}
	ids := make([]string, len(p.deps[i]))
	for k, j := range p.deps[i] {
		ids[k] = p.steps[j].ID
	}
	return ids
}

// Order returns the step ids in an order where every step follows its
// dependencies.
func (p *Plan) Order() []string {
	ids := make([]string, len(p.order))
	for k, i := range p.order {
		ids[k] = p.steps[i].ID
	}
	return ids
}
