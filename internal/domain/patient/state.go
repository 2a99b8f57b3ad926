package patient

import (
	"context"
	"strings"
	"sync"
)

// State holds the session-scoped patient list: the fetched items, a
// loading flag, and the last mutation error. It is the single source of
// truth for the patient family; consumers share one instance rather than
// fetching independent copies.
//
// Items are only patched after a service call resolves; there is no
// optimistic update. Every fetch carries a generation number so a
// response that lands after the scope changed, or after a newer fetch
// started, is discarded instead of clobbering fresher state.
type State struct {
	svc *Service

	mu      sync.Mutex
	userID  string
	gen     uint64
	items   []Patient
	loading bool
	errMsg  string
}

func NewState(svc *Service) *State {
	return &State{svc: svc, loading: true}
}

// SetUser re-scopes the state to the given authenticated user and
// refetches. An empty id is the anonymous guard: items are forced empty
// and loading cleared without any store call.
func (s *State) SetUser(ctx context.Context, userID string) {
	s.mu.Lock()
	s.gen++
	s.userID = userID
	if userID == "" {
		s.items = []Patient{}
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
		s.items = []Patient{}
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.errMsg = ""
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	items := s.svc.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// A newer fetch or scope change superseded this response.
		return
	}
	s.items = items
	s.loading = false
}

// Add creates a patient owned by the current user and appends it to the
// held list. Returns nil without any store call when anonymous.
func (s *State) Add(ctx context.Context, p Patient) *Patient {
	s.mu.Lock()
	uid := s.userID
	s.errMsg = ""
	s.mu.Unlock()
	if uid == "" {
		return nil
	}

	p.PharmacistID = uid
	created := s.svc.Create(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if created == nil {
		s.errMsg = "failed to add patient"
		return nil
	}
	s.items = append(s.items, *created)
	return created
}

// Edit updates a patient and replaces the matching entry in place,
// preserving its position. Returns nil without any store call when
// anonymous.
func (s *State) Edit(ctx context.Context, id string, fields map[string]interface{}) *Patient {
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
		s.errMsg = "failed to update patient"
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

// Remove deletes a patient and filters it out of the held list. Returns
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
		s.errMsg = "failed to delete patient"
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

// Items returns a copy of the held list.
func (s *State) Items() []Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Patient, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last mutation error message, or "".
func (s *State) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Filter returns the held patients whose name, email or phone contains
// term, case-insensitively. An empty term returns everything.
func (s *State) Filter(term string) []Patient {
	items := s.Items()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := []Patient{}
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Email), term) ||
			strings.Contains(strings.ToLower(p.Phone), term) {
			out = append(out, p)
		}
	}
	return out
}
