package solar

import "sync"

// Session is what the advisor remembers about one conversation.
type Session struct {
	// Bill is the monthly electricity bill in PKR.
	Bill float64
	// Units is the monthly consumption in kWh.
	Units float64
	// AreaM2 is the usable roof area in square metres.
	AreaM2 float64
	// AreaDisplay is the roof area as the user gave it, e.g. "5 marla".
	AreaDisplay string
	// SizeKW is the last estimated system size.
	SizeKW float64
}

// SessionStore keeps sessions in memory for the life of the process.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns a copy of the session for id. Unknown ids yield a zero
// Session.
func (s *SessionStore) Get(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return *sess
	}
	return Session{}
}

// Update applies fn to the session for id, creating it if needed, and
// returns a copy of the result.
func (s *SessionStore) Update(id string, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{}
		s.sessions[id] = sess
	}
	fn(sess)
	return *sess
}

// Len reports how many sessions are stored.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
