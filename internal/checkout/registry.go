package checkout

import "sync"

// Registry keeps at most one workflow per user.
type Registry struct {
	mu        sync.Mutex
	workflows map[string]*Workflow
}

func NewRegistry() *Registry {
	return &Registry{workflows: make(map[string]*Workflow)}
}

func (r *Registry) Get(userID string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return w, nil
}

// Put replaces the user's workflow unless the current one is submitting.
func (r *Registry) Put(userID string, w *Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.workflows[userID]; ok && existing.Step() == StepSubmitting {
		return ErrSubmissionInFlight
	}
	r.workflows[userID] = w
	return nil
}

// Remove aborts the user's workflow. Aborting is refused while submitting.
func (r *Registry) Remove(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.workflows[userID]
	if !ok {
		return nil
	}
	if existing.Step() == StepSubmitting {
		return ErrSubmissionInFlight
	}
	delete(r.workflows, userID)
	return nil
}

// Discard drops w if it is still the user's registered workflow.
func (r *Registry) Discard(userID string, w *Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workflows[userID] == w {
		delete(r.workflows, userID)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}
