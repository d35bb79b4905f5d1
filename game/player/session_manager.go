package player

import "sync"

// Manager tracks connected player sessions by account and character id.
type Manager struct {
	mu        sync.RWMutex
	byAccount map[int64]*Session
	byChar    map[int64]*Session
}

func NewManager() *Manager {
	return &Manager{
		byAccount: make(map[int64]*Session),
		byChar:    make(map[int64]*Session),
	}
}

// Register adds the session, kicking any previous connection for the same
// account.
func (m *Manager) Register(s *Session) {
	m.mu.Lock()
	old := m.byAccount[s.AccountID]
	m.byAccount[s.AccountID] = s
	if s.CharID != 0 {
		m.byChar[s.CharID] = s
	}
	m.mu.Unlock()

	if old != nil && old != s {
		old.Close()
	}
}

// Unregister removes the session if it is still the registered one.
func (m *Manager) Unregister(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byAccount[s.AccountID] == s {
		delete(m.byAccount, s.AccountID)
	}
	if s.CharID != 0 && m.byChar[s.CharID] == s {
		delete(m.byChar, s.CharID)
	}
}

// ByChar returns the connected session for the character, or nil.
func (m *Manager) ByChar(charID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byChar[charID]
}

// ByAccount returns the connected session for the account, or nil.
func (m *Manager) ByAccount(accountID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byAccount[accountID]
}

// Broadcast sends a message to every connected session.
func (m *Manager) Broadcast(msgType string, data interface{}) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.byAccount))
	for _, s := range m.byAccount {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Send(msgType, data)
	}
}

// Count returns the number of connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byAccount)
}
