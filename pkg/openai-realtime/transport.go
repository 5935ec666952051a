package openairealtime

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// EventChannelLabel is the data channel label of the event protocol.
const EventChannelLabel = "oai-events"

// DefaultICEServers is used when the engine is given no ICE servers.
var DefaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
}

// PeerConnection is the subset of a WebRTC peer connection the engine
// drives. NewPeerConnection returns the pion implementation.
type PeerConnection interface {
	AddTrack(track webrtc.TrackLocal) error
	CreateDataChannel(label string) (DataChannel, error)

	CreateOffer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	// GatheringComplete is closed once ICE gathering for the committed local
	// description has finished.
	GatheringComplete() <-chan struct{}
	LocalDescription() *webrtc.SessionDescription
	SetRemoteDescription(desc webrtc.SessionDescription) error

	OnICEConnectionStateChange(fn func(webrtc.ICEConnectionState))
	OnDataChannel(fn func(DataChannel))
	OnTrack(fn func(RemoteTrack))

	Close() error
}

// DataChannel is a reliable, ordered message channel.
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	SendText(s string) error
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
	OnClose(fn func())
	Close() error
}

// RemoteTrack is a media track received from the server.
type RemoteTrack interface {
	ID() string
	Kind() webrtc.RTPCodecType
	MimeType() string
	ReadRTP() (*rtp.Packet, error)
}

// PeerFactory creates peer connections.
type PeerFactory func(config webrtc.Configuration) (PeerConnection, error)

// MediaEndpoint owns the local capture stream and remote playback.
type MediaEndpoint interface {
	// StartCapture starts local capture and returns the track to send.
	// Capture keeps running until Stop; ctx only bounds the start itself.
	StartCapture(ctx context.Context) (webrtc.TrackLocal, error)

	// Play installs a remote audio track for playback.
	Play(track RemoteTrack) error

	// Stop stops capture and playback. It is safe to call repeatedly and
	// StartCapture may be called again afterwards.
	Stop() error
}
