package openairealtime

import (
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// NewPeerConnection is the default PeerFactory, backed by pion/webrtc.
func NewPeerConnection(config webrtc.Configuration) (PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, err
	}
	return &pionPeer{pc: pc}, nil
}

type pionPeer struct {
	pc *webrtc.PeerConnection

	mu       sync.Mutex
	gathered <-chan struct{}
}

func (p *pionPeer) AddTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return err
	}
	// Incoming RTCP must be read for interceptors (NACK, reports) to run.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (p *pionPeer) CreateDataChannel(label string) (DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return pionChannel{dc}, nil
}

func (p *pionPeer) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

func (p *pionPeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(desc); err != nil {
		return err
	}
	p.mu.Lock()
	p.gathered = gathered
	p.mu.Unlock()
	return nil
}

func (p *pionPeer) GatheringComplete() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gathered == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.gathered
}

func (p *pionPeer) LocalDescription() *webrtc.SessionDescription {
	return p.pc.LocalDescription()
}

func (p *pionPeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *pionPeer) OnICEConnectionStateChange(fn func(webrtc.ICEConnectionState)) {
	p.pc.OnICEConnectionStateChange(fn)
}

func (p *pionPeer) OnDataChannel(fn func(DataChannel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(pionChannel{dc})
	})
}

func (p *pionPeer) OnTrack(fn func(RemoteTrack)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(pionTrack{track})
	})
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}

type pionChannel struct {
	dc *webrtc.DataChannel
}

func (c pionChannel) Label() string                       { return c.dc.Label() }
func (c pionChannel) ReadyState() webrtc.DataChannelState { return c.dc.ReadyState() }
func (c pionChannel) SendText(s string) error             { return c.dc.SendText(s) }
func (c pionChannel) OnOpen(fn func())                    { c.dc.OnOpen(fn) }
func (c pionChannel) OnClose(fn func())                   { c.dc.OnClose(fn) }
func (c pionChannel) Close() error                        { return c.dc.Close() }

func (c pionChannel) OnMessage(fn func(data []byte)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data)
	})
}

type pionTrack struct {
	t *webrtc.TrackRemote
}

func (t pionTrack) ID() string                { return t.t.ID() }
func (t pionTrack) Kind() webrtc.RTPCodecType { return t.t.Kind() }
func (t pionTrack) MimeType() string          { return t.t.Codec().MimeType }

func (t pionTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := t.t.ReadRTP()
	return pkt, err
}

var _ PeerFactory = NewPeerConnection
