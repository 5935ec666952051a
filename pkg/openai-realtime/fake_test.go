package openairealtime

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// callLog records the order of transport and signaling calls.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == name {
			n++
		}
	}
	return n
}

func (l *callLog) index(name string) int {
	return slices.Index(l.snapshot(), name)
}

type fakePeer struct {
	log *callLog

	createOfferErr error
	setRemoteErr   error
	gathered       chan struct{}

	mu      sync.Mutex
	local   *webrtc.SessionDescription
	remote  *webrtc.SessionDescription
	channel *fakeChannel
	onICE   func(webrtc.ICEConnectionState)
	onDC    func(DataChannel)
	onTrack func(RemoteTrack)
	closed  bool
}

func (p *fakePeer) AddTrack(webrtc.TrackLocal) error {
	p.log.add("add_track")
	return nil
}

func (p *fakePeer) CreateDataChannel(label string) (DataChannel, error) {
	p.log.add("create_data_channel")
	ch := newFakeChannel(label)
	p.mu.Lock()
	p.channel = ch
	p.mu.Unlock()
	return ch, nil
}

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	p.log.add("create_offer")
	if p.createOfferErr != nil {
		return webrtc.SessionDescription{}, p.createOfferErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}, nil
}

func (p *fakePeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	p.log.add("set_local_description")
	p.mu.Lock()
	desc.SDP += " candidates"
	p.local = &desc
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) GatheringComplete() <-chan struct{} {
	if p.gathered != nil {
		return p.gathered
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (p *fakePeer) LocalDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.log.add("set_remote_description")
	if p.setRemoteErr != nil {
		return p.setRemoteErr
	}
	p.mu.Lock()
	p.remote = &desc
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) OnICEConnectionStateChange(fn func(webrtc.ICEConnectionState)) {
	p.mu.Lock()
	p.onICE = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnDataChannel(fn func(DataChannel)) {
	p.mu.Lock()
	p.onDC = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnTrack(fn func(RemoteTrack)) {
	p.mu.Lock()
	p.onTrack = fn
	p.mu.Unlock()
}

func (p *fakePeer) Close() error {
	p.log.add("close_peer")
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) fireICE(st webrtc.ICEConnectionState) {
	p.mu.Lock()
	fn := p.onICE
	p.mu.Unlock()
	fn(st)
}

func (p *fakePeer) fireDataChannel(dc DataChannel) {
	p.mu.Lock()
	fn := p.onDC
	p.mu.Unlock()
	fn(dc)
}

func (p *fakePeer) fireTrack(t RemoteTrack) {
	p.mu.Lock()
	fn := p.onTrack
	p.mu.Unlock()
	fn(t)
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) dataChannel() *fakeChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel
}

type fakeChannel struct {
	label string

	mu        sync.Mutex
	state     webrtc.DataChannelState
	sent      []string
	onMessage func([]byte)
}

func newFakeChannel(label string) *fakeChannel {
	return &fakeChannel{label: label, state: webrtc.DataChannelStateConnecting}
}

func (c *fakeChannel) Label() string { return c.label }

func (c *fakeChannel) ReadyState() webrtc.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) SendText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != webrtc.DataChannelStateOpen {
		return errors.New("fake channel not open")
	}
	c.sent = append(c.sent, s)
	return nil
}

func (c *fakeChannel) OnOpen(func())  {}
func (c *fakeChannel) OnClose(func()) {}

func (c *fakeChannel) OnMessage(fn func([]byte)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateClosed
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) open() {
	c.mu.Lock()
	c.state = webrtc.DataChannelStateOpen
	c.mu.Unlock()
}

func (c *fakeChannel) deliver(data string) {
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	fn([]byte(data))
}

func (c *fakeChannel) sentMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}

type fakeTrack struct {
	id   string
	kind webrtc.RTPCodecType
}

func (t fakeTrack) ID() string                    { return t.id }
func (t fakeTrack) Kind() webrtc.RTPCodecType     { return t.kind }
func (t fakeTrack) MimeType() string              { return webrtc.MimeTypeOpus }
func (t fakeTrack) ReadRTP() (*rtp.Packet, error) { return nil, errors.New("eof") }

type fakeMedia struct {
	log *callLog

	// When set, StartCapture signals entered and then waits for release,
	// ignoring ctx, to model a slow device.
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	played    []string
	stops     int
	capturing bool
}

func (m *fakeMedia) StartCapture(context.Context) (webrtc.TrackLocal, error) {
	m.log.add("start_capture")
	if m.entered != nil {
		close(m.entered)
		<-m.release
	}
	m.mu.Lock()
	m.capturing = true
	m.mu.Unlock()
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "rtcall-test")
}

func (m *fakeMedia) isCapturing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturing
}

func (m *fakeMedia) Play(t RemoteTrack) error {
	m.mu.Lock()
	m.played = append(m.played, t.ID())
	m.mu.Unlock()
	return nil
}

func (m *fakeMedia) Stop() error {
	m.log.add("stop_media")
	m.mu.Lock()
	m.stops++
	m.capturing = false
	m.mu.Unlock()
	return nil
}

func (m *fakeMedia) playedTracks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.played)
}

type fakeSignaler struct {
	log *callLog

	requestErr  error
	exchangeErr error
	answer      string

	// When set, ExchangeOffer signals entered and then waits for release,
	// ignoring ctx, to model a response arriving late.
	entered chan struct{}
	release chan struct{}

	// Same as entered and release, for RequestSession.
	requestEntered chan struct{}
	requestRelease chan struct{}

	mu        sync.Mutex
	offers    []string
	lastModel string
}

func (s *fakeSignaler) RequestSession(ctx context.Context, cfg SessionConfig) (*EphemeralCredential, error) {
	s.log.add("request_session")
	if s.requestEntered != nil {
		close(s.requestEntered)
		<-s.requestRelease
	}
	if s.requestErr != nil {
		return nil, &BootstrapError{Err: s.requestErr}
	}
	return &EphemeralCredential{Token: "ek_test_token", ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func (s *fakeSignaler) ExchangeOffer(ctx context.Context, offerSDP string, cred *EphemeralCredential, model string) (string, error) {
	s.log.add("exchange_offer")
	s.mu.Lock()
	s.offers = append(s.offers, offerSDP)
	s.lastModel = model
	s.mu.Unlock()

	if s.entered != nil {
		close(s.entered)
		<-s.release
	}
	if s.exchangeErr != nil {
		return "", &NegotiationError{Stage: StageExchangeOffer, Err: s.exchangeErr}
	}
	if s.answer == "" {
		return "v=0 answer", nil
	}
	return s.answer, nil
}

type recordingObserver struct {
	mu           sync.Mutex
	statuses     []string
	states       []State
	events       []string
	connected    int
	disconnected int

	disconnectedCh chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{disconnectedCh: make(chan struct{}, 8)}
}

func (o *recordingObserver) OnStatusChange(status string) {
	o.mu.Lock()
	o.statuses = append(o.statuses, status)
	o.mu.Unlock()
}

func (o *recordingObserver) OnStateChange(_, to State) {
	o.mu.Lock()
	o.states = append(o.states, to)
	o.mu.Unlock()
}

func (o *recordingObserver) OnConnected() {
	o.mu.Lock()
	o.connected++
	o.mu.Unlock()
}

func (o *recordingObserver) OnDisconnected() {
	o.mu.Lock()
	o.disconnected++
	o.mu.Unlock()
	o.disconnectedCh <- struct{}{}
}

func (o *recordingObserver) OnEvent(dir Direction, eventType string) {
	o.mu.Lock()
	o.events = append(o.events, string(dir)+":"+eventType)
	o.mu.Unlock()
}

func (o *recordingObserver) statusList() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.statuses)
}

func (o *recordingObserver) stateList() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.states)
}

func (o *recordingObserver) eventList() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.events)
}

func (o *recordingObserver) counts() (connected, disconnected int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connected, o.disconnected
}

// harness wires an Engine to fakes.
type harness struct {
	log      *callLog
	signaler *fakeSignaler
	media    *fakeMedia
	observer *recordingObserver
	engine   *Engine

	mu    sync.Mutex
	peers []*fakePeer
}

func newHarness(t *testing.T, opts ...EngineOption) *harness {
	t.Helper()
	h := &harness{log: &callLog{}, observer: newRecordingObserver()}
	h.signaler = &fakeSignaler{log: h.log}
	h.media = &fakeMedia{log: h.log}

	factory := func(webrtc.Configuration) (PeerConnection, error) {
		h.log.add("new_peer")
		p := &fakePeer{log: h.log}
		h.mu.Lock()
		h.peers = append(h.peers, p)
		h.mu.Unlock()
		return p, nil
	}
	opts = append([]EngineOption{
		WithPeerFactory(factory),
		WithObserver(h.observer),
	}, opts...)

	e, err := NewEngine(h.signaler, h.media, opts...)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	h.engine = e
	return h
}

func (h *harness) peer(t *testing.T) *fakePeer {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.peers) == 0 {
		t.Fatal("no peer connection was created")
	}
	return h.peers[len(h.peers)-1]
}

func (h *harness) peerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}
