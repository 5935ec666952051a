package openairealtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
)

// Status lines reported through Observer.OnStatusChange.
const (
	StatusConnected     = "Connected - Speaking with AI"
	StatusDisconnected  = "Disconnected"
	StatusReceivedAudio = "Received audio track"
)

// Engine runs one realtime voice session at a time: it bootstraps an
// ephemeral credential, negotiates the peer connection, runs the event
// protocol and tears everything down again.
//
// Call and HangUp may be invoked from any goroutine.
type Engine struct {
	signaler   Signaler
	media      MediaEndpoint
	newPeer    PeerFactory
	iceServers []webrtc.ICEServer
	observers  []Observer
	observer   Observer
	logger     *slog.Logger

	mu     sync.Mutex
	config SessionConfig
	sess   *session
}

// session owns every resource of one call attempt.
type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	config  SessionConfig
	started time.Time

	sm      *stateMachine
	history *History
	channel *eventChannel

	mu        sync.Mutex
	closed    bool
	connected bool
	pc        PeerConnection
	cred      *EphemeralCredential
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPeerFactory sets how peer connections are created.
// Default: NewPeerConnection.
func WithPeerFactory(f PeerFactory) EngineOption {
	return func(e *Engine) {
		e.newPeer = f
	}
}

// WithICEServers sets the ICE servers. Default: DefaultICEServers.
func WithICEServers(servers ...webrtc.ICEServer) EngineOption {
	return func(e *Engine) {
		e.iceServers = servers
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSessionConfig sets the initial session configuration.
func WithSessionConfig(c SessionConfig) EngineOption {
	return func(e *Engine) {
		e.config = c
	}
}

// NewEngine creates an idle engine.
func NewEngine(signaler Signaler, media MediaEndpoint, opts ...EngineOption) (*Engine, error) {
	if signaler == nil {
		return nil, errors.New("openai-realtime: signaler is required")
	}
	if media == nil {
		return nil, errors.New("openai-realtime: media endpoint is required")
	}
	e := &Engine{
		signaler:   signaler,
		media:      media,
		newPeer:    NewPeerConnection,
		iceServers: DefaultICEServers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.config = e.config.WithDefaults()
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	switch len(e.observers) {
	case 0:
		e.observer = ObserverFuncs{}
	case 1:
		e.observer = e.observers[0]
	default:
		e.observer = MultiObserver(e.observers)
	}
	return e, nil
}

// Config returns the session configuration used by the next Call.
func (e *Engine) Config() SessionConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config.WithDefaults()
}

// SetConfig replaces the session configuration. It fails with
// ErrSessionActive while a session is negotiating or connected.
func (e *Engine) SetConfig(c SessionConfig) error {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		return ErrSessionActive
	}
	e.config = c
	return nil
}

// Call starts a session. If one is already negotiating or connected, Call
// returns ErrSessionActive and leaves it untouched.
//
// ctx bounds the negotiation only; the session outlives it. On failure every
// resource is released, a status line is reported and the engine is idle
// again. If HangUp interrupts the negotiation, Call returns ErrSessionClosed.
func (e *Engine) Call(ctx context.Context) error {
	e.mu.Lock()
	if e.sess != nil {
		e.mu.Unlock()
		e.logger.Debug("call rejected, session already live")
		return ErrSessionActive
	}
	s := e.newSessionLocked()
	e.sess = s
	e.mu.Unlock()

	err := e.run(ctx, s)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionClosed) || s.isClosed() {
		e.logger.Debug("negotiation result discarded", "error", err)
		return ErrSessionClosed
	}

	e.logger.Error("call failed", "error", err)
	e.teardown(s, false)

	var bootErr *BootstrapError
	if errors.As(err, &bootErr) {
		e.observer.OnStatusChange("Failed to create session: " + bootErr.Err.Error())
	} else {
		e.observer.OnStatusChange("Failed to connect: " + err.Error())
	}
	return err
}

// HangUp ends the current session. It is safe to call in any state and
// more than once; without a session it does nothing.
func (e *Engine) HangUp() error {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		e.logger.Debug("hang up ignored, no session")
		return nil
	}
	e.teardown(s, true)
	return nil
}

// SendEvent sends a client event on the event channel. It returns
// ErrChannelNotReady when there is no open channel.
func (e *Engine) SendEvent(ev ClientEvent) error {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		return ErrChannelNotReady
	}
	return s.channel.send(ev)
}

// State returns the negotiation state of the live session, or StateIdle.
func (e *Engine) State() State {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		return StateIdle
	}
	return s.sm.get()
}

// Active reports whether the session transport is connected.
func (e *Engine) Active() bool {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && !s.closed
}

// History returns a snapshot of the conversation, oldest first.
func (e *Engine) History() []ConversationItem {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.history.Items()
}

// SessionID returns the server-assigned session ID once session.created
// has been received.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	if s == nil {
		return ""
	}
	return s.channel.currentSessionID()
}

func (e *Engine) newSessionLocked() *session {
	ctx, cancel := context.WithCancel(context.Background())
	history := NewHistory(e.config.MaxConversationItems)
	return &session{
		ctx:     ctx,
		cancel:  cancel,
		config:  e.config,
		started: time.Now(),
		sm:      &stateMachine{onChange: e.observer.OnStateChange},
		history: history,
		channel: newEventChannel(history, e.logger, e.observer),
	}
}

// run performs capture, bootstrap and negotiation for s.
func (e *Engine) run(ctx context.Context, s *session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.sm.advance(StateBootstrapping)

	track, err := e.media.StartCapture(ctx)
	if s.isClosed() {
		// Teardown already stopped media, possibly before capture came up.
		return e.abandonCapture(s)
	}
	if err != nil {
		return fmt.Errorf("openai-realtime: start capture: %w", err)
	}
	if track == nil {
		return &NegotiationError{Stage: StageAddTrack, Err: ErrNoLocalTrack}
	}

	cred, err := e.signaler.RequestSession(ctx, s.config)
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err != nil {
		return err
	}
	e.logger.Debug("ephemeral credential acquired", "credential", cred.String())

	pc, err := e.newPeer(webrtc.Configuration{ICEServers: e.iceServers})
	if err != nil {
		return &NegotiationError{Stage: StagePeerConnection, Err: err}
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = pc.Close()
		return ErrSessionClosed
	}
	s.pc = pc
	s.cred = cred
	s.mu.Unlock()

	pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		e.onICEState(s, st)
	})
	pc.OnDataChannel(func(dc DataChannel) {
		if dc.Label() != EventChannelLabel {
			e.logger.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		s.channel.attach(dc)
	})
	pc.OnTrack(func(t RemoteTrack) {
		e.onTrack(s, t)
	})

	if err := pc.AddTrack(track); err != nil {
		return &NegotiationError{Stage: StageAddTrack, Err: err}
	}
	dc, err := pc.CreateDataChannel(EventChannelLabel)
	if err != nil {
		return &NegotiationError{Stage: StageDataChannel, Err: err}
	}
	s.channel.attach(dc)

	neg := &negotiator{pc: pc, sm: s.sm}
	offer, err := neg.createOffer(ctx)
	if err != nil {
		return err
	}

	if s.isClosed() {
		return ErrSessionClosed
	}
	s.sm.advance(StateOfferSent)
	answer, err := e.signaler.ExchangeOffer(ctx, offer.SDP, cred, s.config.Model)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	err = neg.applyAnswer(answer)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.sm.advance(StateAnswerApplied)

	e.logger.Info("negotiation complete",
		"model", s.config.Model,
		"elapsed", time.Since(s.started).Round(time.Millisecond))
	return nil
}

// abandonCapture stops a capture that was started after s was torn down.
// A newer session shares the running capture, so it is left alone.
func (e *Engine) abandonCapture(s *session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil || e.sess == s {
		if err := e.media.Stop(); err != nil {
			e.logger.Debug("stop media", "error", err)
		}
	}
	return ErrSessionClosed
}

// onICEState maps ICE progress onto s. ICE only runs once the answer is
// in place, so an event that overtakes run's own advance still passes
// through StateAnswerApplied first.
func (e *Engine) onICEState(s *session, st webrtc.ICEConnectionState) {
	e.logger.Info("ice connection state", "state", st.String())

	target, ok := iceTarget(st)
	if !ok {
		return
	}
	switch target {
	case StateConnected:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		first := !s.connected
		s.connected = true
		s.mu.Unlock()

		s.sm.advance(StateAnswerApplied)
		s.sm.advance(StateConnected)
		if first {
			e.observer.OnStatusChange(StatusConnected)
			e.observer.OnConnected()
		}
	case StateDisconnected:
		// Closing the peer connection from inside its own callback blocks.
		go e.teardown(s, true)
	default:
		if s.isClosed() {
			return
		}
		s.sm.advance(StateAnswerApplied)
		s.sm.advance(target)
	}
}

func (e *Engine) onTrack(s *session, t RemoteTrack) {
	if t.Kind() != webrtc.RTPCodecTypeAudio {
		e.logger.Warn("ignoring non-audio track", "id", t.ID(), "kind", t.Kind().String())
		return
	}
	if s.isClosed() {
		return
	}
	if err := e.media.Play(t); err != nil {
		e.logger.Warn("play remote track", "id", t.ID(), "error", err)
		return
	}
	e.logger.Info("remote audio track installed", "id", t.ID(), "codec", t.MimeType())
	e.observer.OnStatusChange(StatusReceivedAudio)
}

// teardown releases every resource of s. Only the first call does work.
// When notify is set the disconnected signals are raised.
func (e *Engine) teardown(s *session, notify bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.connected = false
	pc := s.pc
	s.pc = nil
	s.cred = nil
	s.mu.Unlock()

	s.cancel()
	s.channel.close()
	if pc != nil {
		if err := pc.Close(); err != nil {
			e.logger.Debug("close peer connection", "error", err)
		}
	}
	if err := e.media.Stop(); err != nil {
		e.logger.Debug("stop media", "error", err)
	}
	s.history.Clear()
	s.sm.advance(StateDisconnected)

	e.mu.Lock()
	if e.sess == s {
		e.sess = nil
	}
	e.mu.Unlock()

	e.logger.Info("session ended", "duration", time.Since(s.started).Round(time.Millisecond))
	if notify {
		e.observer.OnStatusChange(StatusDisconnected)
		e.observer.OnDisconnected()
	}
}
