package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs keyed, cancellable deferred tasks. Re-adding a key replaces
// the pending task; removing a key before it fires cancels it. Used for
// automated battle turns, keyed to the session id so teardown can cancel a
// callback that would otherwise fire against a dead session.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		logger: logger,
	}
}

// AddDelay schedules fn to run once after d, replacing any pending task
// under the same key. The task deregisters itself before running.
func (s *Scheduler) AddDelay(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled task panicked",
					zap.String("key", key), zap.Any("panic", r))
			}
		}()
		fn()
	})
}

// Remove cancels the pending task under key, if any.
func (s *Scheduler) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// Stop cancels every pending task and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
