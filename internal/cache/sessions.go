package cache

import (
	"log/slog"
	"sync"
	"time"
)

type session struct {
	results  *ResultCache
	lastSeen time.Time
}

// Sessions owns one ResultCache per presentation session. A session's cache is
// created on first Open and discarded whole by End or by an idle Sweep.
type Sessions struct {
	mu          sync.Mutex
	sessions    map[string]*session
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
	onChange    func(active int)
}

// SessionOption customises a Sessions registry.
type SessionOption func(*Sessions)

// WithClock overrides the time source used to track idle sessions.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Sessions) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActiveGauge registers a callback receiving the session count after every change.
func WithActiveGauge(fn func(active int)) SessionOption {
	return func(s *Sessions) {
		s.onChange = fn
	}
}

// NewSessions creates a registry. A non-positive idleTimeout disables sweeping.
func NewSessions(idleTimeout time.Duration, opts ...SessionOption) *Sessions {
	s := &Sessions{
		sessions:    make(map[string]*session),
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns the cache of session id, creating it when the session starts.
func (s *Sessions) Open(id string) *ResultCache {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{results: NewResultCache(NewMemoryProvider())}
		s.sessions[id] = sess
		s.logger.Debug("session started", slog.String("session", id))
		s.notify()
	}
	sess.lastSeen = s.now()
	return sess.results
}

// End discards the cache of session id. It reports whether the session existed.
func (s *Sessions) End(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	s.drop(id, sess)
	s.logger.Debug("session ended", slog.String("session", id))
	return true
}

// Sweep ends every session idle for longer than the idle timeout and returns how many it ended.
func (s *Sessions) Sweep(now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ended := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTimeout {
			s.drop(id, sess)
			ended++
		}
	}
	if ended > 0 {
		s.logger.Info("swept idle sessions", slog.Int("ended", ended), slog.Int("active", len(s.sessions)))
	}
	return ended
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close ends every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		s.drop(id, sess)
	}
}

func (s *Sessions) drop(id string, sess *session) {
	delete(s.sessions, id)
	if err := sess.results.Close(); err != nil {
		s.logger.Warn("close session cache", slog.String("session", id), slog.String("error", err.Error()))
	}
	s.notify()
}

func (s *Sessions) notify() {
	if s.onChange != nil {
		s.onChange(len(s.sessions))
	}
}
