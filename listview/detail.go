// ABOUTME: In-view detail lookup for a single prospect
// ABOUTME: Resolves against the live record set so deletions by other clients show as not found
package listview

import "github.com/harperreed/prospekt/models"

// DetailState is the visible state of the detail view.
type DetailState int

const (
	DetailClosed DetailState = iota
	DetailLoading
	DetailFound
	DetailNotFound
)

func (s DetailState) String() string {
	switch s {
	case DetailClosed:
		return "closed"
	case DetailLoading:
		return "loading"
	case DetailFound:
		return "found"
	case DetailNotFound:
		return "not found"
	}
	return "unknown"
}

// DetailView is what the shell renders for the detail modal.
type DetailView struct {
	State    DetailState
	ID       string
	Prospect models.Prospect
}

// OpenDetail shows id in the detail view.
func (s *Session) OpenDetail(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailID = id
	s.detailOpen = true
}

// CloseDetail hides the detail view.
func (s *Session) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailID = ""
	s.detailOpen = false
}

// Detail resolves the open detail against the latest snapshot.
func (s *Session) Detail() DetailView {
	s.mu.Lock()
	id, open := s.detailID, s.detailOpen
	s.mu.Unlock()

	if !open {
		return DetailView{State: DetailClosed}
	}
	if s.list.Phase() == PhaseLoading {
		return DetailView{State: DetailLoading, ID: id}
	}
	p, ok := s.list.Lookup(id)
	if !ok {
		return DetailView{State: DetailNotFound, ID: id}
	}
	return DetailView{State: DetailFound, ID: id, Prospect: p}
}
