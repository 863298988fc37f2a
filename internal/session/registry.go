package session

// Registry is the unordered set of running sessions. It is not synchronized;
// Manager serializes every access.
type Registry struct {
	sessions []*ActiveExam
}

func (r *Registry) Len() int { return len(r.sessions) }

// All returns the live entries. The slice must not be retained past the lock.
func (r *Registry) All() []*ActiveExam { return r.sessions }

func (r *Registry) IsChannelBusy(ch ChannelID) bool {
	for _, s := range r.sessions {
		if s.ChannelID == ch {
			return true
		}
	}
	return false
}

func (r *Registry) IsUserBusy(user UserID) bool {
	_, ok := r.Lookup(user)
	return ok
}

func (r *Registry) Lookup(user UserID) (*ActiveExam, bool) {
	for _, s := range r.sessions {
		if s.UserID == user {
			return s, true
		}
	}
	return nil, false
}

// LookupIn finds the user's session only if it runs in ch.
func (r *Registry) LookupIn(ch ChannelID, user UserID) (*ActiveExam, bool) {
	s, ok := r.Lookup(user)
	if !ok || s.ChannelID != ch {
		return nil, false
	}
	return s, true
}

// Add inserts s unless its channel or user is already busy.
func (r *Registry) Add(s *ActiveExam) error {
	if r.IsChannelBusy(s.ChannelID) || r.IsUserBusy(s.UserID) {
		return ErrSessionBusy
	}
	r.sessions = append(r.sessions, s)
	return nil
}

// Remove drops the user's session, reporting whether one existed.
func (r *Registry) Remove(user UserID) bool {
	for i, s := range r.sessions {
		if s.UserID == user {
			last := len(r.sessions) - 1
			r.sessions[i] = r.sessions[last]
			r.sessions[last] = nil
			r.sessions = r.sessions[:last]
			return true
		}
	}
	return false
}
