package rtcmedia

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
)

// Sink consumes RTP packets of the remote audio track.
type Sink interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// SinkFunc opens the sink for a call.
type SinkFunc func() (Sink, error)

// OggSink records Opus RTP packets into an Ogg container.
type OggSink struct {
	mu sync.Mutex
	w  *oggwriter.OggWriter
}

// NewOggSink writes to w. w is closed with the sink if it is an io.Closer.
func NewOggSink(w io.Writer) (*OggSink, error) {
	ow, err := oggwriter.NewWith(w, SampleRate, Channels)
	if err != nil {
		return nil, err
	}
	return &OggSink{w: ow}, nil
}

// CreateOggSink creates the file at path. Closing the sink finalizes the
// last page header.
func CreateOggSink(path string) (*OggSink, error) {
	ow, err := oggwriter.New(path, SampleRate, Channels)
	if err != nil {
		return nil, err
	}
	return &OggSink{w: ow}, nil
}

// OggRecording returns a SinkFunc that records each call to path.
func OggRecording(path string) SinkFunc {
	return func() (Sink, error) {
		return CreateOggSink(path)
	}
}

func (s *OggSink) WriteRTP(pkt *rtp.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return io.ErrClosedPipe
	}
	return s.w.WriteRTP(pkt)
}

func (s *OggSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

// DiscardSink drops every packet and counts them.
type DiscardSink struct {
	packets atomic.Int64
}

func (d *DiscardSink) WriteRTP(*rtp.Packet) error {
	d.packets.Add(1)
	return nil
}

func (d *DiscardSink) Close() error { return nil }

// Packets returns the number of packets written.
func (d *DiscardSink) Packets() int64 {
	return d.packets.Load()
}

// Discard returns a SinkFunc of fresh DiscardSinks.
func Discard() SinkFunc {
	return func() (Sink, error) {
		return &DiscardSink{}, nil
	}
}
