// Package stream runs a single streamed request against the analysis service
// and delivers its event payloads to a Handler.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/reviewagent/revchat/pkg/metrics"
	"github.com/reviewagent/revchat/pkg/sse"
)

// Session lifecycle states.
const (
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
	StateDone       = "done"
	StateFailed     = "failed"
	StateCancelled  = "cancelled"
)

const (
	eventOpen   = "open"
	eventFinish = "finish"
	eventFail   = "fail"
	eventCancel = "cancel"
)

// Outcome is the terminal result of a Session.
type Outcome string

const (
	// OutcomePending is reported while the session is still running.
	OutcomePending   Outcome = ""
	OutcomeDone      Outcome = StateDone
	OutcomeFailed    Outcome = StateFailed
	OutcomeCancelled Outcome = StateCancelled
)

// Session is one in-flight streamed request. It is created by Open and runs
// on its own goroutine until the stream ends, fails, or is cancelled.
type Session struct {
	id      uuid.UUID
	machine *fsm.FSM

	source  Source
	request *Request
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error

	// dispatchMu is held from the streaming check through the callback.
	// inCallback is set while the session goroutine is inside a callback so a
	// Cancel issued from that callback does not wait on itself.
	dispatchMu sync.Mutex
	inCallback atomic.Bool

	logger    *slog.Logger
	metrics   *metrics.Collector
	recorder  io.Writer
	chunkSize int
	started   time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics reports the session to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) {
		s.metrics = c
	}
}

// WithRecorder copies every raw byte of the stream to w.
func WithRecorder(w io.Writer) Option {
	return func(s *Session) {
		s.recorder = w
	}
}

// WithChunkSize sets the size of each read from the stream body.
func WithChunkSize(n int) Option {
	return func(s *Session) {
		s.chunkSize = n
	}
}

func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		StateConnecting,
		fsm.Events{
			{Name: eventOpen, Src: []string{StateConnecting}, Dst: StateStreaming},
			{Name: eventFinish, Src: []string{StateStreaming}, Dst: StateDone},
			{Name: eventFail, Src: []string{StateConnecting, StateStreaming}, Dst: StateFailed},
			{Name: eventCancel, Src: []string{StateConnecting, StateStreaming}, Dst: StateCancelled},
		},
		fsm.Callbacks{},
	)
}

// Open starts streaming req from source and returns immediately. Exactly one
// network attempt is made.
//
// Payloads reach handler.OnEvent strictly in arrival order. A clean end of
// stream produces OnDone and a transport failure produces OnError; either is
// delivered at most once and nothing follows it.
func Open(ctx context.Context, source Source, req *Request, handler Handler, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New(),
		machine:   newMachine(),
		source:    source,
		request:   req,
		handler:   handler,
		done:      make(chan struct{}),
		logger:    slog.New(slog.DiscardHandler),
		chunkSize: sse.DefaultChunkSize,
		started:   time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.logger = s.logger.With("session_id", s.id.String())
	s.metrics.SessionStarted()

	s.logger.Debug("opening stream session", "target", req.Target)

	go s.run()

	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Cancel aborts the stream and suppresses every callback not yet started.
// Once it returns no further callback begins. Called from another goroutine
// it waits for a callback already running to return; called from inside a
// callback it returns at once. It is idempotent and has no effect once the
// session has terminated on its own.
func (s *Session) Cancel() {
	if err := s.machine.Event(context.Background(), eventCancel); err != nil {
		return
	}

	s.cancel()
	s.logger.Debug("stream session cancelled")

	if !s.inCallback.Load() {
		s.dispatchMu.Lock()
		s.dispatchMu.Unlock() //nolint:staticcheck // barrier for an in-flight dispatch
	}
}

// Done is closed when the session has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session terminates and returns its outcome.
func (s *Session) Wait() Outcome {
	<-s.done
	return s.Outcome()
}

// Outcome reports the terminal outcome, or OutcomePending while running.
func (s *Session) Outcome() Outcome {
	switch state := s.machine.Current(); state {
	case StateDone, StateFailed, StateCancelled:
		return Outcome(state)
	default:
		return OutcomePending
	}
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	return s.machine.Current()
}

// Err returns the failure delivered to OnError, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) run() {
	defer close(s.done)
	defer s.cancel()
	defer func() {
		outcome := s.Outcome()
		s.metrics.SessionFinished(string(outcome), time.Since(s.started))
		s.logger.Debug("stream session terminated",
			"outcome", string(outcome),
			"elapsed", time.Since(s.started),
		)
	}()

	body, err := s.source.Stream(s.ctx, s.request)
	if err != nil {
		s.fail(err)
		return
	}
	defer body.Close()

	if err := s.machine.Event(context.Background(), eventOpen); err != nil {
		return
	}
	s.dispatch(s.handler.OnOpen)

	reader := sse.NewTeeReader(body, s.recorder, sse.WithChunkSize(s.chunkSize))

	var counted int64
	for {
		ev, err := reader.Next()

		s.metrics.BytesRead(reader.BytesRead() - counted)
		counted = reader.BytesRead()

		if err != nil {
			s.fail(err)
			return
		}

		if ev == nil {
			s.finish()
			return
		}

		delivered := s.dispatch(func() {
			s.handler.OnEvent(ev.Data)
		})
		if !delivered {
			return
		}
		s.metrics.EventDelivered()
	}
}

// dispatch runs fn only while the session is still streaming. The check and
// the call happen under dispatchMu, so a Cancel from another goroutine either
// prevents fn or waits for it.
func (s *Session) dispatch(fn func()) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if !s.machine.Is(StateStreaming) {
		return false
	}

	s.inCallback.Store(true)
	defer s.inCallback.Store(false)

	fn()
	return true
}

func (s *Session) finish() {
	if err := s.machine.Event(context.Background(), eventFinish); err != nil {
		return
	}

	s.handler.OnDone()
}

func (s *Session) fail(err error) {
	// A cancelled parent context is a cancellation, not a transport failure.
	if s.ctx.Err() != nil {
		if s.machine.Event(context.Background(), eventCancel) == nil {
			s.logger.Debug("stream session cancelled by parent context")
		}
		return
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		terr = &TransportError{Err: err}
	}

	if s.machine.Event(context.Background(), eventFail) != nil {
		return
	}

	s.mu.Lock()
	s.err = terr
	s.mu.Unlock()

	s.logger.Warn("stream session failed", "status", terr.Status, "error", terr)
	s.handler.OnError(terr)
}
