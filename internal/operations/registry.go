package operations

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the steps of a run in registration order
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds step. IDs must be non-empty and unique.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return NewValidationError("", "cannot register a nil step")
	}
	id := step.ID()
	if id == "" {
		return NewValidationError("", "step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[id]; exists {
		return NewValidationError(id, "step already registered")
	}
	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// GetDependencyOrder sorts the steps topologically. Among steps whose
// dependencies are all placed, the earliest registered goes first.
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if _, ok := r.steps[dep]; !ok {
				return nil, fmt.Errorf("step %s depends on non-existent step %s", id, dep)
			}
		}
	}

	placed := make(map[string]bool, len(r.order))
	ordered := make([]Step, 0, len(r.order))
	for len(ordered) < len(r.order) {
		next := ""
		for _, id := range r.order {
			if !placed[id] && r.ready(id, placed) {
				next = id
				break
			}
		}
		if next == "" {
			return nil, fmt.Errorf("dependency cycle detected among %s", strings.Join(r.unplaced(placed), ", "))
		}
		placed[next] = true
		ordered = append(ordered, r.steps[next])
	}
	return ordered, nil
}

func (r *Registry) ready(id string, placed map[string]bool) bool {
	for _, dep := range r.steps[id].GetDependencies() {
		if !placed[dep] {
			return false
		}
	}
	return true
}

func (r *Registry) unplaced(placed map[string]bool) []string {
	var ids []string
	for _, id := range r.order {
		if !placed[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetDependents returns the steps depending directly on stepID, in registration order
func (r *Registry) GetDependents(stepID string) []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var dependents []Step
	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if dep == stepID {
				dependents = append(dependents, r.steps[id])
				break
			}
		}
	}
	return dependents
}
