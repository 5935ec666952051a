package rtcmedia

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

func TestSilenceSource(t *testing.T) {
	s := NewSilenceSource(60 * time.Millisecond)
	var total time.Duration
	for {
		frame, d, err := s.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextFrame error: %v", err)
		}
		if !bytes.Equal(frame, opusSilence) {
			t.Errorf("frame = %x", frame)
		}
		total += d
	}
	if total != 60*time.Millisecond {
		t.Errorf("total = %v, want 60ms", total)
	}

	endless := NewSilenceSource(0)
	for i := 0; i < 1000; i++ {
		if _, _, err := endless.NextFrame(); err != nil {
			t.Fatalf("endless source ended: %v", err)
		}
	}
}

func writeOgg(t *testing.T, w io.Writer, payloads [][]byte) {
	t.Helper()
	sink, err := NewOggSink(w)
	if err != nil {
		t.Fatalf("NewOggSink error: %v", err)
	}
	for i, p := range payloads {
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    111,
				SequenceNumber: uint16(i),
				Timestamp:      uint32(i * 960),
			},
			Payload: p,
		}
		if err := sink.WriteRTP(pkt); err != nil {
			t.Fatalf("WriteRTP error: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestOggRoundTrip(t *testing.T) {
	payloads := [][]byte{{0xfc, 0x01}, {0xfc, 0x02}, {0xfc, 0x03}}

	var buf bytes.Buffer
	writeOgg(t, &buf, payloads)

	src, err := NewOggSource(bytes.NewReader(buf.Bytes()), false)
	if err != nil {
		t.Fatalf("NewOggSource error: %v", err)
	}
	defer src.Close()

	for i, want := range payloads {
		frame, d, err := src.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame %d error: %v", i, err)
		}
		if !bytes.Equal(frame, want) {
			t.Errorf("frame %d = %x, want %x", i, frame, want)
		}
		if i > 0 && d != FrameDuration {
			t.Errorf("frame %d duration = %v, want %v", i, d, FrameDuration)
		}
	}
	if _, _, err := src.NextFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("NextFrame after last page = %v, want EOF", err)
	}
}

func TestOggSource_Loop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.ogg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	writeOgg(t, f, [][]byte{{0xfc, 0xaa}, {0xfc, 0xbb}})
	f.Close()

	src, err := OpenOgg(path, true)
	if err != nil {
		t.Fatalf("OpenOgg error: %v", err)
	}
	defer src.Close()

	var got []byte
	for i := 0; i < 5; i++ {
		frame, _, err := src.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame %d error: %v", i, err)
		}
		got = append(got, frame[1])
	}
	if want := []byte{0xaa, 0xbb, 0xaa, 0xbb, 0xaa}; !bytes.Equal(got, want) {
		t.Errorf("frames = %x, want %x", got, want)
	}
}

func TestOggSource_Errors(t *testing.T) {
	if _, err := NewOggSource(bytes.NewBufferString("not an ogg stream"), false); err == nil {
		t.Error("NewOggSource accepted garbage")
	}
	if _, err := NewOggSource(io.MultiReader(), true); err == nil {
		t.Error("NewOggSource accepted a non-seekable looping reader")
	}
	if _, err := OpenOgg(filepath.Join(t.TempDir(), "missing.ogg"), false); err == nil {
		t.Error("OpenOgg accepted a missing file")
	}
}

type scriptedTrack struct {
	mu      sync.Mutex
	packets []*rtp.Packet
}

func (s *scriptedTrack) ID() string                { return "remote-audio" }
func (s *scriptedTrack) Kind() webrtc.RTPCodecType { return webrtc.RTPCodecTypeAudio }
func (s *scriptedTrack) MimeType() string          { return webrtc.MimeTypeOpus }

func (s *scriptedTrack) ReadRTP() (*rtp.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.packets) == 0 {
		return nil, io.EOF
	}
	p := s.packets[0]
	s.packets = s.packets[1:]
	return p, nil
}

func TestEndpoint_Capture(t *testing.T) {
	e := NewEndpoint(WithSource(func() (Source, error) {
		return NewSilenceSource(60 * time.Millisecond), nil
	}))

	track, err := e.StartCapture(context.Background())
	if err != nil {
		t.Fatalf("StartCapture error: %v", err)
	}
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		t.Errorf("Kind() = %v", track.Kind())
	}
	again, _ := e.StartCapture(context.Background())
	if again != track {
		t.Error("second StartCapture created a new track while capturing")
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.Stats().FramesSent < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := e.Stats().FramesSent; got != 3 {
		t.Errorf("FramesSent = %d, want 3", got)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second Stop error: %v", err)
	}

	next, err := e.StartCapture(context.Background())
	if err != nil {
		t.Fatalf("StartCapture after Stop error: %v", err)
	}
	if next == track {
		t.Error("StartCapture after Stop reused the old track")
	}
	e.Stop()
}

func TestEndpoint_CaptureCancelled(t *testing.T) {
	e := NewEndpoint()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.StartCapture(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("StartCapture error = %v, want context.Canceled", err)
	}
}

func TestEndpoint_PlayRecordsToOgg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.ogg")
	e := NewEndpoint(WithSink(OggRecording(path)))

	remote := &scriptedTrack{}
	for i := 0; i < 4; i++ {
		remote.packets = append(remote.packets, &rtp.Packet{
			Header:  rtp.Header{Version: 2, PayloadType: 111, SequenceNumber: uint16(i), Timestamp: uint32(i * 960)},
			Payload: []byte{0xfc, byte(i)},
		})
	}
	if err := e.Play(remote); err != nil {
		t.Fatalf("Play error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.Stats().PacketsReceived < 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	src, err := OpenOgg(path, false)
	if err != nil {
		t.Fatalf("OpenOgg error: %v", err)
	}
	defer src.Close()
	n := 0
	for {
		_, _, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextFrame error: %v", err)
		}
		n++
	}
	if n != 4 {
		t.Errorf("recorded %d frames, want 4", n)
	}
}

func TestDiscardSink(t *testing.T) {
	sink, _ := Discard()()
	d := sink.(*DiscardSink)
	for i := 0; i < 3; i++ {
		d.WriteRTP(&rtp.Packet{})
	}
	if d.Packets() != 3 {
		t.Errorf("Packets() = %d, want 3", d.Packets())
	}
}

func TestPacketDuration(t *testing.T) {
	tests := []struct {
		name string
		pkt  []byte
		want time.Duration
	}{
		{"empty", nil, 0},
		{"silence", opusSilence, 20 * time.Millisecond},
		{"silk nb 60ms", []byte{3 << 3}, 60 * time.Millisecond},
		{"celt fb 2.5ms", []byte{28 << 3}, 2500 * time.Microsecond},
		{"two frames", []byte{1<<3 | 1}, 40 * time.Millisecond},
		{"arbitrary three frames", []byte{31<<3 | 3, 3}, 60 * time.Millisecond},
		{"arbitrary truncated", []byte{31<<3 | 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PacketDuration(tt.pkt); got != tt.want {
				t.Errorf("PacketDuration(%x) = %v, want %v", tt.pkt, got, tt.want)
			}
		})
	}
}
