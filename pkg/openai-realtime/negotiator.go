package openairealtime

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v3"
)

// State is the negotiation phase of a session. States only move forward;
// Disconnected is terminal and reachable from every other state.
type State int32

const (
	StateIdle State = iota
	StateBootstrapping
	StateOfferCreating
	StateOfferSent
	StateAnswerApplied
	StateICEChecking
	StateConnected
	StateDisconnected
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateBootstrapping: "bootstrapping",
	StateOfferCreating: "offer_creating",
	StateOfferSent:     "offer_sent",
	StateAnswerApplied: "answer_applied",
	StateICEChecking:   "ice_checking",
	StateConnected:     "connected",
	StateDisconnected:  "disconnected",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText renders the state name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type stateMachine struct {
	mu       sync.Mutex
	state    State
	onChange func(from, to State)
}

func (m *stateMachine) get() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// advance moves to the given state if it lies ahead of the current one.
func (m *stateMachine) advance(to State) bool {
	m.mu.Lock()
	from := m.state
	if from == StateDisconnected || to <= from {
		m.mu.Unlock()
		return false
	}
	m.state = to
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(from, to)
	}
	return true
}

// negotiator runs the offer/answer exchange on one peer connection.
type negotiator struct {
	pc PeerConnection
	sm *stateMachine
}

// createOffer creates the offer and commits it as the local description.
// The returned description is the committed one, carrying the gathered
// candidates, so it is always safe to transmit.
func (n *negotiator) createOffer(ctx context.Context) (webrtc.SessionDescription, error) {
	n.sm.advance(StateOfferCreating)

	offer, err := n.pc.CreateOffer()
	if err != nil {
		return webrtc.SessionDescription{}, &NegotiationError{Stage: StageCreateOffer, Err: err}
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, &NegotiationError{Stage: StageSetLocalDescription, Err: err}
	}

	select {
	case <-n.pc.GatheringComplete():
	case <-ctx.Done():
		return webrtc.SessionDescription{}, &NegotiationError{Stage: StageGatherCandidates, Err: ctx.Err()}
	}

	if local := n.pc.LocalDescription(); local != nil {
		offer = *local
	}
	return offer, nil
}

// applyAnswer sets the server answer as the remote description. The caller
// advances the state once it has released its locks.
func (n *negotiator) applyAnswer(sdp string) error {
	err := n.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
	if err != nil {
		return &NegotiationError{Stage: StageSetRemoteDescription, Err: err}
	}
	return nil
}

// iceTarget maps an ICE connection state to the negotiation state it
// implies. ok is false for states that do not move the session.
func iceTarget(st webrtc.ICEConnectionState) (target State, ok bool) {
	switch st {
	case webrtc.ICEConnectionStateChecking:
		return StateICEChecking, true
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		return StateConnected, true
	case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
		return StateDisconnected, true
	default:
		return 0, false
	}
}
