package chat

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/reviewagent/revchat/pkg/auth"
	"github.com/reviewagent/revchat/pkg/metrics"
	"github.com/reviewagent/revchat/pkg/stream"
)

const (
	directTarget     = "/chat"
	contextualTarget = "/chat/with-analysis"

	requestParam = "request"
	userIDHeader = "userId"
)

// Orchestrator drives one conversation. All state transitions happen under a
// single lock; at most one stream session is attached at a time, and
// callbacks from a session that has since been detached are ignored.
type Orchestrator struct {
	source   stream.Source
	identity auth.Identity
	logger   *slog.Logger
	notifier Notifier
	framing  Framing

	sessionOpts []stream.Option

	mu    sync.Mutex
	state State

	// attached is the turn currently feeding the log.
	attached *turn

	// background is the fire-and-forget context sync of StartContextual.
	background *stream.Session

	lastErr error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, stream.WithMetrics(c))
	}
}

func WithFraming(f Framing) Option {
	return func(o *Orchestrator) {
		o.framing = f
	}
}

// WithSessionOptions passes extra options to every stream session opened.
func WithSessionOptions(opts ...stream.Option) Option {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// New returns an idle Orchestrator in direct mode with a visible, empty
// conversation.
func New(source stream.Source, identity auth.Identity, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:   source,
		identity: identity,
		logger:   slog.New(slog.DiscardHandler),
		notifier: nopNotifier{},
		framing:  DefaultFraming(),
		state: State{
			Mode:    ModeDirect,
			Visible: true,
		},
	}

	for _, opt := range opts {
		opt(o)
	}

	o.sessionOpts = append([]stream.Option{stream.WithLogger(o.logger)}, o.sessionOpts...)

	return o
}

// SendMessage appends text as a user message and streams the reply in the
// current mode. Empty text is ignored. Without a logged-in user it returns
// ErrAuthorizationMissing and leaves the conversation untouched.
//
// The reply arrives asynchronously; ctx bounds the lifetime of its stream.
// Any reply still streaming is cancelled first.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	userID, ok := o.identity.UserID()
	if !ok {
		o.notifier.Notify(Notice{Kind: NoticeAuthRequired, Err: ErrAuthorizationMissing})
		return ErrAuthorizationMissing
	}

	o.mu.Lock()
	prev := o.detachLocked()

	o.state.Messages = append(o.state.Messages, Message{Role: RoleUser, Content: text})
	o.state.Streaming = true
	o.lastErr = nil

	t := &turn{o: o, mode: o.state.Mode}
	t.session = stream.Open(ctx, o.source, o.request(o.state.Mode, userID, text), t, o.sessionOpts...)
	o.attached = t
	o.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}

	o.logger.Debug("message sent",
		"mode", string(t.mode),
		"session_id", t.session.ID().String(),
	)

	go t.settle()

	return nil
}

// StartContextual replaces the conversation with a contextual chat about a:
// the log is cleared and seeded with a framing user message and a canned
// acknowledgement, and no reply is streamed into it. The same context is sent
// to the service in the background so it can establish the conversation; that
// exchange's outcome is discarded.
//
// Without a logged-in user the framing pair is still put in place and
// ErrAuthorizationMissing is returned; nothing is sent.
func (o *Orchestrator) StartContextual(ctx context.Context, a Analysis) error {
	framing := o.framing.Context(a)
	userID, authed := o.identity.UserID()

	o.mu.Lock()
	prev := o.detachLocked()
	prevBackground := o.background
	o.background = nil

	o.state.Mode = ModeContextual
	o.state.Messages = []Message{
		{Role: RoleUser, Content: framing},
		{Role: RoleAssistant, Content: o.framing.Ack()},
	}
	o.lastErr = nil

	unread := !o.state.Visible
	if unread {
		o.state.HasUnread = true
	}

	if authed {
		sink := backgroundSink{logger: o.logger}
		o.background = stream.Open(ctx, o.source, o.request(ModeContextual, userID, framing), sink, o.sessionOpts...)
	}
	o.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	if prevBackground != nil {
		prevBackground.Cancel()
	}

	if unread {
		o.notifier.Notify(Notice{Kind: NoticeUnread})
	}

	if !authed {
		o.notifier.Notify(Notice{Kind: NoticeAuthRequired, Err: ErrAuthorizationMissing})
		return ErrAuthorizationMissing
	}

	o.logger.Debug("contextual chat started")

	return nil
}

// Reset returns to direct mode with an empty log. An in-flight reply is not
// cancelled; call Close first for that.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.Mode = ModeDirect
	o.state.Messages = nil
}

// Close hides the conversation. A reply still streaming is cancelled and the
// conversation becomes idle at once. Only a payload already being delivered is
// waited for, never the rest of the stream.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.state.Visible = false
	prev := o.detachLocked()
	o.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		o.logger.Debug("streaming reply cancelled", "session_id", prev.ID().String())
	}
}

// Shutdown cancels the attached reply and any background context sync.
// Use Wait to block until they have wound down.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	prev := o.detachLocked()
	bg := o.background
	o.background = nil
	o.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	if bg != nil {
		bg.Cancel()
	}
}

// Open shows the conversation and clears the unread marker.
func (o *Orchestrator) Open() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.Visible = true
	o.state.HasUnread = false
}

// ToggleFullScreen flips the full screen presentation flag and returns the
// new value.
func (o *Orchestrator) ToggleFullScreen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.FullScreen = !o.state.FullScreen
	return o.state.FullScreen
}

// Snapshot returns a copy of the conversation state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.state
	s.Messages = slices.Clone(o.state.Messages)
	return s
}

// Streaming reports whether a reply is currently attached and running.
func (o *Orchestrator) Streaming() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state.Streaming
}

// LastError returns the failure of the most recent reply, cleared by the
// next send.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.lastErr
}

// Wait blocks until the attached reply and any background context sync have
// terminated, or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	var pending []*stream.Session
	if o.attached != nil {
		pending = append(pending, o.attached.session)
	}
	if o.background != nil {
		pending = append(pending, o.background)
	}
	o.mu.Unlock()

	for _, s := range pending {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// detachLocked unhooks the attached turn and returns its session for the
// caller to cancel once the lock is released.
func (o *Orchestrator) detachLocked() *stream.Session {
	t := o.attached
	if t == nil {
		return nil
	}

	o.attached = nil
	o.state.Streaming = false

	return t.session
}

func (o *Orchestrator) request(mode Mode, userID, text string) *stream.Request {
	header := http.Header{}
	header.Set(userIDHeader, userID)

	req := &stream.Request{
		Method: http.MethodGet,
		Target: directTarget,
		Query:  url.Values{requestParam: {text}},
		Header: header,
	}

	if mode == ModeContextual {
		req.Method = http.MethodPost
		req.Target = contextualTarget
	}

	return req
}

// turn is the Handler for one attached reply.
type turn struct {
	o       *Orchestrator
	mode    Mode
	session *stream.Session
}

func (t *turn) OnOpen() {}

func (t *turn) OnEvent(payload string) {
	o := t.o

	o.mu.Lock()
	if o.attached != t {
		o.mu.Unlock()
		return
	}

	msgs := o.state.Messages
	if n := len(msgs); n == 0 || msgs[n-1].Role != RoleAssistant {
		o.state.Messages = append(o.state.Messages, Message{Role: RoleAssistant})
	}
	o.state.Messages[len(o.state.Messages)-1].Content += payload
	o.mu.Unlock()

	o.notifier.Notify(Notice{Kind: NoticeDelta, Text: payload})
}

func (t *turn) OnDone() {
	if !t.finish(nil) {
		return
	}
	t.o.notifier.Notify(Notice{Kind: NoticeTurnDone})
}

func (t *turn) OnError(err error) {
	if !t.finish(err) {
		return
	}

	t.o.logger.Warn("reply failed", "session_id", t.session.ID().String(), "error", err)
	t.o.notifier.Notify(Notice{Kind: NoticeTurnFailed, Err: err})
}

// finish detaches t if it is still attached.
func (t *turn) finish(err error) bool {
	o := t.o

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attached != t {
		return false
	}

	o.attached = nil
	o.state.Streaming = false
	if err != nil {
		o.lastErr = err
	}

	return true
}

// settle returns the conversation to idle when the session ends without a
// callback, e.g. because its parent context was cancelled.
func (t *turn) settle() {
	<-t.session.Done()

	if t.finish(nil) {
		t.o.logger.Debug("reply ended without completing", "outcome", string(t.session.Outcome()))
	}
}

// backgroundSink discards the reply to a context sync.
type backgroundSink struct {
	logger *slog.Logger
}

func (backgroundSink) OnOpen()        {}
func (backgroundSink) OnEvent(string) {}
func (backgroundSink) OnDone()        {}

func (b backgroundSink) OnError(err error) {
	b.logger.Warn("background context sync failed", "error", err)
}
