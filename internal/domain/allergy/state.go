package allergy

import (
	"context"
	"sync"
)

// State holds one patient's allergy list. Instances come from a States
// registry so that every consumer of the same patient shares a single
// snapshot. The same guard and generation rules as the other entity
// states apply: anonymous scope means empty items and no store calls,
// and stale fetch responses are discarded.
type State struct {
	svc       *Service
	patientID string

	mu      sync.Mutex
	userID  string
	gen     uint64
	items   []Allergy
	loading bool
	errMsg  string
}

func newState(svc *Service, patientID, userID string) *State {
	return &State{svc: svc, patientID: patientID, userID: userID, loading: true}
}

func (s *State) setUser(ctx context.Context, userID string) {
	s.mu.Lock()
	s.gen++
	s.userID = userID
	if userID == "" {
		s.items = []Allergy{}
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.Refresh(ctx)
}

// Refresh replaces items wholesale with the service's current list.
func (s *State) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.userID == "" {
		s.items = []Allergy{}
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.errMsg = ""
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	items := s.svc.ListByPatient(ctx, s.patientID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.items = items
	s.loading = false
}

// Add records an allergy and appends it to the held list. Returns nil
// without any store call when anonymous.
func (s *State) Add(ctx context.Context, name string) *Allergy {
	s.mu.Lock()
	uid := s.userID
	s.errMsg = ""
	s.mu.Unlock()
	if uid == "" {
		return nil
	}

	created := s.svc.Add(ctx, s.patientID, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if created == nil {
		s.errMsg = "failed to add allergy"
		return nil
	}
	s.items = append(s.items, *created)
	return created
}

// Remove deletes an allergy row and filters it out of the held list.
// Returns false without any store call when anonymous.
func (s *State) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	uid := s.userID
	s.errMsg = ""
	s.mu.Unlock()
	if uid == "" {
		return false
	}

	ok := s.svc.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.errMsg = "failed to delete allergy"
		return false
	}
	kept := s.items[:0]
	for _, a := range s.items {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.items = kept
	return true
}

// Items returns a copy of the held list.
func (s *State) Items() []Allergy {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Allergy, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *State) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// States is the per-patient registry of allergy states. For returns the
// shared instance for a patient, creating and priming it on first use.
// SetUser re-scopes every live instance at once.
type States struct {
	svc *Service

	mu     sync.Mutex
	userID string
	states map[string]*State
}

func NewStates(svc *Service) *States {
	return &States{svc: svc, states: make(map[string]*State)}
}

func (r *States) For(ctx context.Context, patientID string) *State {
	r.mu.Lock()
	st, ok := r.states[patientID]
	if !ok {
		st = newState(r.svc, patientID, r.userID)
		r.states[patientID] = st
	}
	uid := r.userID
	r.mu.Unlock()
	if !ok && uid != "" {
		st.Refresh(ctx)
	}
	if !ok && uid == "" {
		st.setUser(ctx, "")
	}
	return st
}

func (r *States) SetUser(ctx context.Context, userID string) {
	r.mu.Lock()
	r.userID = userID
	live := make([]*State, 0, len(r.states))
	for _, st := range r.states {
		live = append(live, st)
	}
	r.mu.Unlock()
	for _, st := range live {
		st.setUser(ctx, userID)
	}
}
