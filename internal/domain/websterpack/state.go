package websterpack

import (
	"context"
	"sync"
)

// State holds a pack list, either the full set or one patient's, shared
// via a States registry. Anonymous scope means empty items and no store
// calls; stale fetch responses are discarded by generation number.
type State struct {
	svc       *Service
	patientID string // "" means all packs

	mu      sync.Mutex
	userID  string
	gen     uint64
	items   []WebsterPack
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
		s.items = []WebsterPack{}
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
		s.items = []WebsterPack{}
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.errMsg = ""
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var items []WebsterPack
	if s.patientID == "" {
		items = s.svc.List(ctx)
	} else {
		items = s.svc.ListByPatient(ctx, s.patientID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.items = items
	s.loading = false
}

// Add creates a pack owned by the current user and appends it to the
// held list. Returns nil without any store call when anonymous.
func (s *State) Add(ctx context.Context, p WebsterPack) *WebsterPack {
	s.mu.Lock()
	uid := s.userID
	s.errMsg = ""
	s.mu.Unlock()
	if uid == "" {
		return nil
	}

	p.PharmacistID = uid
	if s.patientID != "" {
		p.PatientID = s.patientID
	}
	created := s.svc.Create(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if created == nil {
		s.errMsg = "failed to add webster pack"
		return nil
	}
	s.items = append(s.items, *created)
	return created
}

// Edit updates a pack and replaces the matching entry in place. Returns
// nil without any store call when anonymous.
func (s *State) Edit(ctx context.Context, id string, fields map[string]interface{}) *WebsterPack {
	s.mu.Lock()
	uid := s.userID
	s.errMsg = ""
	s.mu.Unlock()
	if uid == "" {
		return nil
	}

	updated := s.svc.Update(ctx, id, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	if updated == nil {
		s.errMsg = "failed to update webster pack"
		return nil
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = *updated
			break
		}
	}
	return updated
}

// Remove deletes a pack and filters it out of the held list. Returns
// false without any store call when anonymous.
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
		s.errMsg = "failed to delete webster pack"
		return false
	}
	kept := s.items[:0]
	for _, p := range s.items {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.items = kept
	return true
}

// ScanBarcode resolves a scanned code to its pack. Returns nil without
// any store call when anonymous.
func (s *State) ScanBarcode(ctx context.Context, barcode string) *WebsterPack {
	s.mu.Lock()
	uid := s.userID
	s.mu.Unlock()
	if uid == "" {
		return nil
	}
	return s.svc.GetByBarcode(ctx, barcode)
}

// Summary counts the held packs by status.
func (s *State) Summary() StatusSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := StatusSummary{Total: len(s.items)}
	for _, p := range s.items {
		switch p.Status {
		case StatusPending:
			out.Pending++
		case StatusCompleted:
			out.Completed++
		}
	}
	return out
}

// Items returns a copy of the held list.
func (s *State) Items() []WebsterPack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WebsterPack, len(s.items))
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

// States is the registry of pack states, keyed by patient id with ""
// holding the unfiltered list.
type States struct {
	svc *Service

	mu     sync.Mutex
	userID string
	states map[string]*State
}

func NewStates(svc *Service) *States {
	return &States{svc: svc, states: make(map[string]*State)}
}

// For returns the shared state for a patient filter, creating and
// priming it on first use. Pass "" for the unfiltered list.
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

// SetUser re-scopes every live instance at once.
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
