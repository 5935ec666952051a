package rtcmedia

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v3/pkg/media/oggreader"
)

// Opus stream parameters used on both directions of a call.
const (
	SampleRate    = 48000
	Channels      = 2
	FrameDuration = 20 * time.Millisecond
)

// Source produces Opus frames for the capture track.
type Source interface {
	// NextFrame returns one Opus frame and its play time. io.EOF ends capture.
	NextFrame() ([]byte, time.Duration, error)
	Close() error
}

// SourceFunc opens a fresh Source for each capture.
type SourceFunc func() (Source, error)

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SilenceSource emits Opus silence frames.
type SilenceSource struct {
	remaining time.Duration
	unbounded bool
}

// NewSilenceSource returns a source of silence lasting d. A non-positive d
// never ends.
func NewSilenceSource(d time.Duration) *SilenceSource {
	return &SilenceSource{remaining: d, unbounded: d <= 0}
}

func (s *SilenceSource) NextFrame() ([]byte, time.Duration, error) {
	if !s.unbounded {
		if s.remaining <= 0 {
			return nil, 0, io.EOF
		}
		s.remaining -= FrameDuration
	}
	return opusSilence, FrameDuration, nil
}

func (s *SilenceSource) Close() error { return nil }

// Silence returns a SourceFunc of endless silence.
func Silence() SourceFunc {
	return func() (Source, error) {
		return NewSilenceSource(0), nil
	}
}

// OggSource reads Opus frames from an Ogg stream, one frame per page. Frame
// durations come from granule position deltas, or from the packet TOC when
// the granule does not advance.
type OggSource struct {
	r           io.Reader
	closer      io.Closer
	loop        bool
	ogg         *oggreader.OggReader
	lastGranule uint64
	pageCount   int
}

// NewOggSource reads an Ogg/Opus stream from r. With loop set, r must be an
// io.Seeker and the stream restarts at EOF.
func NewOggSource(r io.Reader, loop bool) (*OggSource, error) {
	if _, ok := r.(io.Seeker); loop && !ok {
		return nil, errors.New("rtcmedia: looping needs a seekable reader")
	}
	s := &OggSource{r: r, loop: loop}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenOgg opens an Ogg/Opus file.
func OpenOgg(path string, loop bool) (*OggSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewOggSource(f, loop)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rtcmedia: %s: %w", path, err)
	}
	return s, nil
}

// OggFile returns a SourceFunc that opens path for every capture.
func OggFile(path string, loop bool) SourceFunc {
	return func() (Source, error) {
		return OpenOgg(path, loop)
	}
}

func (s *OggSource) reset() error {
	// The OpusHead input rate is informational; Opus granules are 48kHz.
	ogg, _, err := oggreader.NewWith(s.r)
	if err != nil {
		return fmt.Errorf("read ogg header: %w", err)
	}
	s.ogg = ogg
	s.lastGranule = 0
	s.pageCount = 0
	return nil
}

func (s *OggSource) NextFrame() ([]byte, time.Duration, error) {
	for {
		page, header, err := s.ogg.ParseNextPage()
		if errors.Is(err, io.EOF) && s.loop && s.pageCount > 0 {
			if _, err := s.r.(io.Seeker).Seek(0, io.SeekStart); err != nil {
				return nil, 0, err
			}
			if err := s.reset(); err != nil {
				return nil, 0, err
			}
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if bytes.HasPrefix(page, []byte("OpusTags")) {
			continue
		}

		samples := uint64(0)
		if header.GranulePosition > s.lastGranule {
			samples = header.GranulePosition - s.lastGranule
		}
		s.lastGranule = header.GranulePosition
		s.pageCount++

		d := time.Duration(samples) * time.Second / SampleRate
		if d <= 0 {
			d = PacketDuration(page)
		}
		if d <= 0 {
			d = FrameDuration
		}
		return page, d, nil
	}
}

func (s *OggSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
