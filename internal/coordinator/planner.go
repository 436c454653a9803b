package coordinator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

var (
	// ErrInvalidPlan is the root of every plan validation failure.
	ErrInvalidPlan = errors.New("invalid execution plan")
	// ErrUnknownDimension is returned for a dimension outside the known set.
	ErrUnknownDimension = errors.New("unknown dimension")
)

// PlanError lists every problem found in a plan.
type PlanError struct {
	Problems []error
}

func (e *PlanError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPlan, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *PlanError) Unwrap() []error {
	return append([]error{ErrInvalidPlan}, e.Problems...)
}

// ExecutionGroup is a set of tool requests of one dimension that run
// together. Groups run strictly one after another.
type ExecutionGroup struct {
	Index     int
	Dimension models.Dimension
	Parallel  bool
	Tools     []models.ToolRequest
}

// OrderPolicy decides the order of dimension groups. dims holds each
// dimension once, in first-seen plan order.
type OrderPolicy interface {
	Order(dims []models.Dimension) []models.Dimension
}

// FirstSeenOrder runs dimensions in the order the plan first mentions them.
type FirstSeenOrder struct{}

// Order implements OrderPolicy.
func (FirstSeenOrder) Order(dims []models.Dimension) []models.Dimension { return dims }

// CanonicalOrder runs format, lint, security, test, build, data.
type CanonicalOrder struct{}

// Order implements OrderPolicy.
func (CanonicalOrder) Order(dims []models.Dimension) []models.Dimension {
	out := slices.Clone(dims)
	slices.SortStableFunc(out, func(a, b models.Dimension) int {
		return slices.Index(models.AllDimensions, a) - slices.Index(models.AllDimensions, b)
	})
	return out
}

// OrderByName returns the policy for a configured order name. Empty selects
// FirstSeenOrder.
func OrderByName(name string) (OrderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first_seen":
		return FirstSeenOrder{}, nil
	case "canonical":
		return CanonicalOrder{}, nil
	default:
		return nil, fmt.Errorf("unknown group order %q (want first_seen or canonical)", name)
	}
}

// Planner validates plans and groups their requests by dimension.
type Planner struct {
	manager    *WrapperManager
	order      OrderPolicy
	sequential map[models.Dimension]bool
}

// NewPlanner creates a planner. sequential lists dimensions forced to run
// one tool at a time in addition to the inherently sequential ones.
func NewPlanner(manager *WrapperManager, order OrderPolicy, sequential []string) *Planner {
	if order == nil {
		order = FirstSeenOrder{}
	}
	seq := make(map[models.Dimension]bool)
	for _, d := range sequential {
		seq[models.Dimension(d)] = true
	}
	return &Planner{manager: manager, order: order, sequential: seq}
}

// Validate checks every request and reports all problems at once. It
// never runs a wrapper.
func (p *Planner) Validate(plan *models.ExecutionPlan) error {
	var problems []error
	if !plan.Mode.Valid() {
		problems = append(problems, fmt.Errorf("unknown plan mode %q", plan.Mode))
	}

	seen := make(map[string]bool)
	for i, req := range plan.Tools {
		where := fmt.Sprintf("tools[%d]", i)
		if req.Name == "" {
			problems = append(problems, fmt.Errorf("%s: missing tool name", where))
			continue
		}
		where = fmt.Sprintf("%s (%s)", where, req.Name)

		known := p.manager.Known(req.Name)
		if !known {
			problems = append(problems, fmt.Errorf("%s: %w", where, ErrUnknownTool))
		}
		if !req.Dimension.Valid() {
			problems = append(problems, fmt.Errorf("%s: %w %q", where, ErrUnknownDimension, req.Dimension))
		}
		if req.Scope != "" && !req.Scope.Valid() {
			problems = append(problems, fmt.Errorf("%s: unknown scope %q", where, req.Scope))
		}
		if !req.Mode.Valid() {
			problems = append(problems, fmt.Errorf("%s: unknown mode %q", where, req.Mode))
		}
		if req.Timeout < 0 {
			problems = append(problems, fmt.Errorf("%s: negative timeout", where))
		}

		if known {
			w, err := p.manager.Get(req.Name)
			if err == nil && req.Dimension.Valid() && !slices.Contains(w.Dimensions(), req.Dimension) {
				problems = append(problems, fmt.Errorf("%s: tool does not support dimension %q", where, req.Dimension))
			}
			if err == nil && req.Scope.Valid() && !appliesTo(req.Scope, w.Scopes()) {
				problems = append(problems, fmt.Errorf("%s: tool does not apply to scope %q", where, req.Scope))
			}
		}

		if seen[req.Key()] {
			problems = append(problems, fmt.Errorf("%s: duplicate request %s", where, req.Key()))
		}
		seen[req.Key()] = true
	}

	if len(problems) > 0 {
		return &PlanError{Problems: problems}
	}
	return nil
}

// appliesTo reports whether a request scope selects a tool declaring scopes.
func appliesTo(scope models.Scope, scopes []models.Scope) bool {
	return slices.ContainsFunc(scopes, scope.Covers)
}

// Plan validates plan and returns its execution groups. A plan without
// tools yields zero groups and no error.
func (p *Planner) Plan(plan *models.ExecutionPlan) ([]ExecutionGroup, error) {
	if err := p.Validate(plan); err != nil {
		return nil, err
	}
	return p.Group(plan.Tools), nil
}

// Group buckets already validated requests by dimension. Requests keep
// their plan order inside a group.
func (p *Planner) Group(reqs []models.ToolRequest) []ExecutionGroup {
	var dims []models.Dimension
	byDim := make(map[models.Dimension][]models.ToolRequest)
	for _, req := range reqs {
		if _, ok := byDim[req.Dimension]; !ok {
			dims = append(dims, req.Dimension)
		}
		byDim[req.Dimension] = append(byDim[req.Dimension], req)
	}

	groups := make([]ExecutionGroup, 0, len(dims))
	for i, dim := range p.order.Order(dims) {
		groups = append(groups, ExecutionGroup{
			Index:     i,
			Dimension: dim,
			Parallel:  !dim.Sequential() && !p.sequential[dim],
			Tools:     byDim[dim],
		})
	}
	return groups
}
