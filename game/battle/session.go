package battle

import (
	"sync"
	"time"

	"github.com/minako-h/duelgate/server/model"
)

// Session kinds.
const (
	KindPVP = "PVP"
	KindPVE = "PVE"
)

// Session is one running combat: two snapshots, a turn state machine, and
// an append-only event log.
//
// There is no locking inside the resolution pipeline itself: exactly one
// participant owns the turn and the manager holds the session mutex while an
// action resolves to completion. Concurrency exists across sessions only.
type Session struct {
	ID    string // uuid
	RowID int64  // persisted battle row
	Kind  string

	A *Combatant
	B *Combatant

	mu        sync.Mutex
	status    string
	turn      int   // starts at 1, increments per completed half-round
	activeID  int64 // char id of the turn owner
	starterID int64 // who acted first; round boundary is after the other side
	winnerID  *int64
	events    []Event

	CreatedAt time.Time
}

// NewSession creates an active session. The first turn goes to the higher
// speed; a speed tie falls to the higher speed+luck sum, then to a.
func NewSession(id string, rowID int64, kind string, a, b *Combatant) *Session {
	first := a
	switch {
	case b.Speed > a.Speed:
		first = b
	case b.Speed == a.Speed && b.Speed+b.Luck > a.Speed+a.Luck:
		first = b
	}
	return &Session{
		ID:        id,
		RowID:     rowID,
		Kind:      kind,
		A:         a,
		B:         b,
		status:    model.BattleActive,
		turn:      1,
		activeID:  first.CharID,
		starterID: first.CharID,
		CreatedAt: time.Now(),
	}
}

// Lock serializes action admission for this session. The manager holds it
// across validate, resolve, and advance.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) Status() string { return s.status }
func (s *Session) Turn() int      { return s.turn }

// Active returns the snapshot that currently owns the turn.
func (s *Session) Active() *Combatant {
	if s.activeID == s.B.CharID {
		return s.B
	}
	return s.A
}

// ByChar returns the participant snapshot for the given character id.
func (s *Session) ByChar(charID int64) *Combatant {
	switch charID {
	case s.A.CharID:
		return s.A
	case s.B.CharID:
		return s.B
	}
	return nil
}

// Opponent returns the other participant's snapshot.
func (s *Session) Opponent(charID int64) *Combatant {
	if charID == s.A.CharID {
		return s.B
	}
	return s.A
}

// IsTurn reports whether the character owns the active turn.
func (s *Session) IsTurn(charID int64) bool {
	return s.status == model.BattleActive && s.activeID == charID
}

// Terminated reports whether the session has left the active state.
func (s *Session) Terminated() bool {
	return s.status != model.BattleActive
}

// Winner returns the winning character id, nil while active or on flee.
func (s *Session) Winner() *int64 {
	return s.winnerID
}

// finish latches the terminal state exactly once. Later calls no-op, so a
// double defeat in one round cannot overwrite the first detected winner.
func (s *Session) finish(winnerID int64) bool {
	if s.status != model.BattleActive {
		return false
	}
	s.status = model.BattleFinished
	w := winnerID
	s.winnerID = &w
	return true
}

// flee latches the fled terminal state with no winner.
func (s *Session) flee() bool {
	if s.status != model.BattleActive {
		return false
	}
	s.status = model.BattleFled
	return true
}

// advance moves the turn to the other participant and counts the completed
// half-round. Returns true when a full round just completed, i.e. the side
// that acted second has finished their action.
func (s *Session) advance() bool {
	roundDone := s.activeID != s.starterID
	s.turn++
	s.activeID = s.Opponent(s.activeID).CharID
	return roundDone
}

// appendEvent records an entry in the chronological log.
func (s *Session) appendEvent(ev Event) {
	ev.Turn = s.turn
	ev.At = time.Now()
	s.events = append(s.events, ev)
}

// Events returns a copy of the chronological log.
func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// LogTail returns up to n of the most recent narration lines.
func (s *Session) LogTail(n int) []string {
	var lines []string
	for _, ev := range s.events {
		lines = append(lines, ev.Lines...)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
