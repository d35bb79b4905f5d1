package battle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/model"
	"github.com/minako-h/duelgate/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry is the synchronized repository of live sessions. Sessions are
// created and destroyed concurrently by independent player actions; all
// map access goes through the registry lock.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Session
	byChar map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Session),
		byChar: make(map[int64]*Session),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	r.byChar[s.A.CharID] = s
	r.byChar[s.B.CharID] = s
}

func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (r *Registry) ByChar(charID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byChar[charID]
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, s.ID)
	delete(r.byChar, s.A.CharID)
	delete(r.byChar, s.B.CharID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// MenuEntry is one usable command in a participant's action menu.
type MenuEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Notifier receives session lifecycle pushes; the transport layer fans them
// out to connected participants and spectators.
type Notifier interface {
	BattleStarted(sess *Session, menus map[int64][]MenuEntry)
	BattleUpdated(sess *Session, tick *Event, res *ActionResult)
	BattleEnded(sess *Session)
}

type nopNotifier struct{}

func (nopNotifier) BattleStarted(*Session, map[int64][]MenuEntry) {}
func (nopNotifier) BattleUpdated(*Session, *Event, *ActionResult) {}
func (nopNotifier) BattleEnded(*Session)                          {}

// Manager owns session lifecycle: creation, action admission, automated
// turns, and teardown through the settler.
type Manager struct {
	db         *gorm.DB
	store      *content.Store
	resolver   *Resolver
	controller *Controller
	settler    *Settler
	sched      *scheduler.Scheduler
	registry   *Registry
	notifier   Notifier
	logger     *zap.Logger
}

func NewManager(db *gorm.DB, store *content.Store, resolver *Resolver, controller *Controller,
	settler *Settler, sched *scheduler.Scheduler, notifier Notifier, logger *zap.Logger) *Manager {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:         db,
		store:      store,
		resolver:   resolver,
		controller: controller,
		settler:    settler,
		sched:      sched,
		registry:   NewRegistry(),
		notifier:   notifier,
		logger:     logger,
	}
}

func (m *Manager) Registry() *Registry { return m.registry }

// SetNotifier installs the transport fan-out. Called once during wiring,
// before any session exists.
func (m *Manager) SetNotifier(n Notifier) {
	if n != nil {
		m.notifier = n
	}
}

// CreateSession builds both snapshots, persists the initial battle row,
// registers the session, and notifies both sides with their action menus.
// If the first turn belongs to an automated participant, its action is
// scheduled immediately.
func (m *Manager) CreateSession(ctx context.Context, kind string, aID, bID int64) (*Session, error) {
	if s := m.registry.ByChar(aID); s != nil {
		return nil, fmt.Errorf("character %d is already in battle", aID)
	}
	if s := m.registry.ByChar(bID); s != nil {
		return nil, fmt.Errorf("character %d is already in battle", bID)
	}

	a, err := LoadCombatant(m.db, m.store, aID)
	if err != nil {
		return nil, err
	}
	b, err := LoadCombatant(m.db, m.store, bID)
	if err != nil {
		return nil, err
	}

	row := model.Battle{
		SessionID: uuid.NewString(),
		Kind:      kind,
		CharAID:   aID,
		CharBID:   bID,
		Status:    model.BattleActive,
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("persist battle row: %w", err)
	}

	sess := NewSession(row.SessionID, row.ID, kind, a, b)

	// Registry.Add makes the session discoverable, so from that point on
	// every read goes through the session lock. Holding it across the start
	// notification keeps the first push consistent with the opening state.
	sess.Lock()
	sess.appendEvent(Event{Lines: []string{fmt.Sprintf("%s challenges %s!", a.Name, b.Name)}})
	m.registry.Add(sess)

	m.logger.Info("battle created",
		zap.String("session_id", sess.ID),
		zap.String("kind", kind),
		zap.Int64("char_a", aID),
		zap.Int64("char_b", bID))

	menus := map[int64][]MenuEntry{
		aID: m.Menu(a),
		bID: m.Menu(b),
	}
	m.notifier.BattleStarted(sess, menus)
	m.maybeScheduleAI(sess)
	sess.Unlock()
	return sess, nil
}

// Menu computes the participant's usable commands, filtered by statuses
// that disable commands.
func (m *Manager) Menu(c *Combatant) []MenuEntry {
	var out []MenuEntry
	for _, cmd := range m.store.Commands() {
		if c.CommandDisabled(cmd.ID) {
			continue
		}
		out = append(out, MenuEntry{ID: cmd.ID, Name: cmd.Name})
	}
	return out
}

// Submit admits one action for the character. A submission against no
// session, a terminated session, or out of turn is rejected outright, never
// queued. The session lock is held for the full resolve-advance span, so
// exactly one action mutates a session at a time.
func (m *Manager) Submit(ctx context.Context, charID int64, act Action) (*ActionResult, error) {
	sess := m.registry.ByChar(charID)
	if sess == nil {
		return reject("No active battle"), nil
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Terminated() {
		return reject("No active battle"), nil
	}
	if !sess.IsTurn(charID) {
		return reject("Not your turn"), nil
	}

	actor := sess.ByChar(charID)
	res := m.resolver.Resolve(ctx, sess, actor, act)
	if res.Rejected || !res.Consumed {
		return res, nil
	}

	sess.appendEvent(Event{ActorID: charID, Lines: res.Lines, Effects: res.Effects})
	tick := m.controller.Advance(sess, actor)
	m.notifier.BattleUpdated(sess, tick, res)

	if sess.Terminated() {
		m.teardown(ctx, sess)
	} else {
		m.maybeScheduleAI(sess)
	}
	return res, nil
}

func aiKey(sessionID string) string {
	return "ai_" + sessionID
}

func (m *Manager) maybeScheduleAI(sess *Session) {
	active := sess.Active()
	if !active.NPC {
		return
	}
	sessionID := sess.ID
	charID := active.CharID
	m.sched.AddDelay(aiKey(sessionID), m.controller.AIDelay(), func() {
		// Submit re-validates under the session lock; a session torn down
		// between here and there is rejected, not raced.
		s := m.registry.Get(sessionID)
		if s == nil {
			return
		}
		act := m.controller.PickAutoAction()
		if act.CommandID == 0 {
			m.forfeit(context.Background(), s, charID)
			return
		}
		if _, err := m.Submit(context.Background(), charID, act); err != nil {
			m.logger.Error("automated action failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	})
}

// forfeit concedes the session on behalf of charID: the opponent wins and
// the battle settles. Reached when an automated participant finds no usable
// command in the loaded content, which would otherwise stall its turn forever.
func (m *Manager) forfeit(ctx context.Context, sess *Session, charID int64) {
	sess.Lock()
	defer sess.Unlock()
	if sess.Terminated() {
		return
	}
	loser := sess.ByChar(charID)
	winner := sess.Opponent(charID)
	if loser == nil || !sess.finish(winner.CharID) {
		return
	}
	sess.appendEvent(Event{ActorID: charID, Lines: []string{fmt.Sprintf("%s concedes the battle!", loser.Name)}})
	m.logger.Warn("no usable automated action, conceding",
		zap.String("session_id", sess.ID), zap.Int64("char_id", charID))
	m.teardown(ctx, sess)
}

// teardown settles and deregisters a terminated session. The pending
// automated task, if any, is cancelled first so it cannot fire against the
// dead session.
func (m *Manager) teardown(ctx context.Context, sess *Session) {
	m.sched.Remove(aiKey(sess.ID))
	if err := m.settler.Settle(ctx, sess); err != nil {
		m.logger.Error("settlement failed",
			zap.String("session_id", sess.ID), zap.Error(err))
	}
	m.registry.Remove(sess)
	m.notifier.BattleEnded(sess)
	m.logger.Info("battle ended",
		zap.String("session_id", sess.ID),
		zap.String("status", sess.Status()),
		zap.Int("turns", sess.Turn()))
}
