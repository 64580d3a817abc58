// Package draftsync keeps an editable in-memory draft of server data apart
// from the last value known to be persisted, and saves drafts once edits
// settle.
//
// Each Stream tracks a draft version and a baseline version. An edit bumps
// the draft version and restarts the debounce timer; when the timer expires
// the draft is written if its version differs from the baseline's. At most one
// write per stream is in flight. Edits never wait on a write.
package draftsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"relaypace/internal/metrics"
)

// DefaultDelay is how long a draft must stay unchanged before it is written.
const DefaultDelay = time.Second

// ErrClosed is returned when editing a closed stream.
var ErrClosed = errors.New("draft stream closed")

// WriteFunc persists one draft snapshot.
type WriteFunc[T any] func(ctx context.Context, value T) error

// Notifier is told about failed writes. It stands in for the user facing
// error notification; the draft is kept either way.
type Notifier func(stream string, err error)

type settings struct {
	delay   time.Duration
	clock   clockwork.Clock
	notify  Notifier
	logger  *slog.Logger
	metrics *metrics.Manager
}

// Option configures a Stream or a Session.
type Option func(*settings)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithClock replaces the real clock, typically with a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithNotifier sets the callback for failed writes.
func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records edits and writes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		delay:  DefaultDelay,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.notify == nil {
		logger := s.logger
		s.notify = func(stream string, err error) {
			logger.Error("unable to save", slog.String("stream", stream), slog.String("error", err.Error()))
		}
	}
	return s
}

// Stream is one independently debounced and written data stream.
type Stream[T any] struct {
	name  string
	ctx   context.Context
	clone func(T) T
	write WriteFunc[T]
	settings

	mu              sync.Mutex
	draft           T
	draftVersion    uint64
	baseline        T
	baselineVersion uint64
	inFlight        bool
	done            chan struct{} // closed when the in-flight write finishes
	flushDue        bool          // the timer expired while a write was in flight
	timer           clockwork.Timer
	timerGen        uint64
	closed          bool
}

// NewStream loads initial as both draft and baseline. clone must return a
// copy of its argument that shares no mutable state with it; writes run with
// ctx.
func NewStream[T any](ctx context.Context, name string, initial T, clone func(T) T, write WriteFunc[T], opts ...Option) *Stream[T] {
	return &Stream[T]{
		name:     name,
		ctx:      ctx,
		clone:    clone,
		write:    write,
		settings: newSettings(opts),
		draft:    initial,
		baseline: initial,
	}
}

// Name identifies the stream in logs and metrics.
func (s *Stream[T]) Name() string { return s.name }

// Draft returns a copy of the current draft.
func (s *Stream[T]) Draft() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.draft)
}

// Baseline returns a copy of the last value known to be persisted.
func (s *Stream[T]) Baseline() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.baseline)
}

// Versions reports the draft and baseline versions.
func (s *Stream[T]) Versions() (draft, baseline uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftVersion, s.baselineVersion
}

// Dirty reports whether the draft has edits that are not yet persisted.
func (s *Stream[T]) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftVersion != s.baselineVersion
}

// Saving reports whether a write is in flight or a dirty draft is waiting
// out the debounce delay.
func (s *Stream[T]) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight || (s.timer != nil && s.draftVersion != s.baselineVersion)
}

// Update applies fn to a copy of the draft. If fn fails the draft is left
// as it was. A successful edit becomes the new draft and restarts the
// debounce timer.
func (s *Stream[T]) Update(fn func(draft *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := s.clone(s.draft)
	if err := fn(&next); err != nil {
		return err
	}
	s.draft = next
	s.draftVersion++
	s.restartTimerLocked()
	s.metrics.RecordSyncEdit(s.name)
	return nil
}

// Reset loads value as both draft and baseline, dropping pending edits.
func (s *Stream[T]) Reset(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.draft = value
	s.baseline = value
	s.draftVersion++
	s.baselineVersion = s.draftVersion
	s.flushDue = false
}

// Flush writes the draft now if it is dirty, first waiting for any write in
// flight. It returns the error of the write it issued, if any.
func (s *Stream[T]) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inFlight {
			done := s.done
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.stopTimerLocked()
		value, version, ok := s.beginWriteLocked()
		s.mu.Unlock()
		if !ok {
			return nil
		}
		return s.runWrite(value, version)
	}
}

// Close flushes pending edits and stops the stream. Further edits fail with
// ErrClosed.
func (s *Stream[T]) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()
	return err
}

func (s *Stream[T]) restartTimerLocked() {
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.onTimer(gen) })
}

func (s *Stream[T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// a callback already on its way sees a newer generation and does nothing
	s.timerGen++
}

func (s *Stream[T]) onTimer(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.inFlight {
		s.flushDue = true
		s.mu.Unlock()
		return
	}
	value, version, ok := s.beginWriteLocked()
	s.mu.Unlock()
	if ok {
		_ = s.runWrite(value, version)
	}
}

// beginWriteLocked marks a write in flight when the draft is dirty.
func (s *Stream[T]) beginWriteLocked() (T, uint64, bool) {
	var zero T
	if s.draftVersion == s.baselineVersion {
		return zero, 0, false
	}
	s.inFlight = true
	s.done = make(chan struct{})
	return s.draft, s.draftVersion, true
}

// runWrite performs a write and any write that became due while it ran.
// It returns the result of the first write.
func (s *Stream[T]) runWrite(value T, version uint64) error {
	var first error
	for n := 0; ; n++ {
		err := s.write(s.ctx, value)
		if n == 0 {
			first = err
		}

		s.mu.Lock()
		s.inFlight = false
		close(s.done)
		if err == nil && version > s.baselineVersion {
			s.baseline = value
			s.baselineVersion = version
		}
		again := false
		if s.flushDue && !s.closed {
			s.flushDue = false
			value, version, again = s.beginWriteLocked()
		}
		s.mu.Unlock()

		s.report(err)
		if !again {
			return first
		}
	}
}

func (s *Stream[T]) report(err error) {
	if err == nil {
		s.metrics.RecordSyncWrite(s.name, metrics.OutcomeOK)
		s.logger.Debug("draft saved", slog.String("stream", s.name))
		return
	}
	s.metrics.RecordSyncWrite(s.name, metrics.OutcomeError)
	s.notify(s.name, err)
}
