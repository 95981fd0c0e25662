package session

import "sort"

// Snapshot is the durable serialization of exam progress, keyed by test
// ID in the SnapshotStore. Field names are a compatibility surface:
// resume must read back exactly what was written.
type Snapshot struct {
	Answers              map[string][]string `json:"answers"`
	CurrentQuestionIndex int                 `json:"currentQuestionIndex"`
	Visited              []string            `json:"visited"`
	MarkForReview        map[string]bool     `json:"markForReview"`
	TimeLeft             int                 `json:"timeLeft"`
	Started              bool                `json:"started"`
}

// SnapshotStore is the local durable persistence capability. Load
// returns (nil, nil) when no snapshot exists for the key.
type SnapshotStore interface {
	Save(testID string, snap Snapshot) error
	Load(testID string) (*Snapshot, error)
	Clear(testID string) error
}

// Store is the canonical in-memory representation of exam progress. It
// is a pure state container; all mutation goes through the Controller.
type Store struct {
	answers map[string][]string
	visited map[string]bool
	marked  map[string]bool
	current int
	started bool
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		answers: make(map[string][]string),
		visited: make(map[string]bool),
		marked:  make(map[string]bool),
	}
}

// Reset clears all progress, returning the store to its fresh state.
func (s *Store) Reset() {
	s.answers = make(map[string][]string)
	s.visited = make(map[string]bool)
	s.marked = make(map[string]bool)
	s.current = 0
	s.started = false
}

// SetAnswer records the selection for a question key. Empty selections
// remove the key so "unanswered" stays representable as key absence.
func (s *Store) SetAnswer(key string, selected []string) {
	if len(selected) == 0 {
		delete(s.answers, key)
		return
	}
	s.answers[key] = selected
}

// Answer returns the current selection for a key, or nil if unanswered.
func (s *Store) Answer(key string) []string {
	return s.answers[key]
}

// Answered reports whether the key has a non-empty selection.
func (s *Store) Answered(key string) bool {
	return len(s.answers[key]) > 0
}

// ClearAnswer removes the selection for a key.
func (s *Store) ClearAnswer(key string) {
	delete(s.answers, key)
}

// Visit adds a key to the visited set and moves the cursor. The visited
// set only ever grows during a session.
func (s *Store) Visit(key string, index int) {
	s.visited[key] = true
	s.current = index
}

// Visited reports whether a key has been navigated to.
func (s *Store) Visited(key string) bool {
	return s.visited[key]
}

// ToggleMark flips the mark-for-review flag for a key.
func (s *Store) ToggleMark(key string) {
	s.marked[key] = !s.marked[key]
}

// Marked reports the mark-for-review flag for a key.
func (s *Store) Marked(key string) bool {
	return s.marked[key]
}

// Current returns the cursor position.
func (s *Store) Current() int {
	return s.current
}

// Started reports whether the session has been started.
func (s *Store) Started() bool {
	return s.started
}

// SetStarted records the started flag.
func (s *Store) SetStarted(v bool) {
	s.started = v
}

// Snapshot serializes the store plus the given remaining time. The
// visited list is sorted so repeated snapshots of identical state are
// byte-for-byte stable.
func (s *Store) Snapshot(timeLeft int) Snapshot {
	answers := make(map[string][]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = append([]string(nil), v...)
	}
	visited := make([]string, 0, len(s.visited))
	for k := range s.visited {
		visited = append(visited, k)
	}
	sort.Strings(visited)
	marked := make(map[string]bool, len(s.marked))
	for k, v := range s.marked {
		if v {
			marked[k] = true
		}
	}
	return Snapshot{
		Answers:              answers,
		CurrentQuestionIndex: s.current,
		Visited:              visited,
		MarkForReview:        marked,
		TimeLeft:             timeLeft,
		Started:              s.started,
	}
}

// Restore replaces the store contents with a loaded snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.Reset()
	for k, v := range snap.Answers {
		if len(v) > 0 {
			s.answers[k] = append([]string(nil), v...)
		}
	}
	for _, k := range snap.Visited {
		s.visited[k] = true
	}
	for k, v := range snap.MarkForReview {
		if v {
			s.marked[k] = true
		}
	}
	s.current = snap.CurrentQuestionIndex
	s.started = snap.Started
}
