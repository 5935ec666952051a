// Package rtcmedia is a file-backed media endpoint for realtime calls. It
// streams Opus frames from a Source into a local WebRTC track and records
// the remote audio track into a Sink.
package rtcmedia

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

// Endpoint implements openairealtime.MediaEndpoint.
type Endpoint struct {
	openSource SourceFunc
	openSink   SinkFunc
	logger     *slog.Logger

	framesSent      atomic.Int64
	packetsReceived atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	track   *webrtc.TrackLocalStaticSample
	source  Source
	sink    Sink
	stopped chan struct{}
	done    sync.WaitGroup
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithSource sets the capture source. Default: Silence().
func WithSource(f SourceFunc) Option {
	return func(e *Endpoint) {
		e.openSource = f
	}
}

// WithSink sets the playback sink. Default: Discard().
func WithSink(f SinkFunc) Option {
	return func(e *Endpoint) {
		e.openSink = f
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Endpoint) {
		e.logger = l
	}
}

// NewEndpoint creates an idle endpoint.
func NewEndpoint(opts ...Option) *Endpoint {
	e := &Endpoint{
		openSource: Silence(),
		openSink:   Discard(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats counts media moved since the endpoint was created.
type Stats struct {
	FramesSent      int64 `json:"frames_sent"`
	PacketsReceived int64 `json:"packets_received"`
}

// Stats returns the current counters.
func (e *Endpoint) Stats() Stats {
	return Stats{
		FramesSent:      e.framesSent.Load(),
		PacketsReceived: e.packetsReceived.Load(),
	}
}

// StartCapture opens the source and starts pumping it into a new Opus
// track. While capturing, it returns the current track.
func (e *Endpoint) StartCapture(ctx context.Context) (webrtc.TrackLocal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return e.track, nil
	}

	src, err := e.openSource()
	if err != nil {
		return nil, err
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: SampleRate, Channels: Channels},
		"audio",
		"rtcall",
	)
	if err != nil {
		src.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.track = track
	e.source = src
	e.stopped = make(chan struct{})

	e.done.Add(1)
	go e.pump(runCtx, src, track)
	return track, nil
}

// pump writes frames at real-time pace until the source ends or ctx is done.
func (e *Endpoint) pump(ctx context.Context, src Source, track *webrtc.TrackLocalStaticSample) {
	defer e.done.Done()

	next := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		frame, d, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			e.logger.Info("capture source ended")
			return
		}
		if err != nil {
			e.logger.Warn("capture source failed", "error", err)
			return
		}

		if err := track.WriteSample(media.Sample{Data: frame, Duration: d}); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				return
			}
			e.logger.Debug("write sample", "error", err)
		}
		e.framesSent.Add(1)

		next = next.Add(d)
		timer.Reset(time.Until(next))
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Play records track into the sink until the track ends or Stop is
// called.
func (e *Endpoint) Play(track openairealtime.RemoteTrack) error {
	e.mu.Lock()
	if e.sink == nil {
		sink, err := e.openSink()
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.sink = sink
	}
	sink := e.sink
	stopped := e.stopped
	e.mu.Unlock()

	go func() {
		for {
			pkt, err := track.ReadRTP()
			if err != nil {
				e.logger.Debug("remote track ended", "id", track.ID(), "error", err)
				return
			}
			if stopped != nil {
				select {
				case <-stopped:
					return
				default:
				}
			}
			e.packetsReceived.Add(1)
			if err := sink.WriteRTP(pkt); err != nil {
				if errors.Is(err, io.ErrClosedPipe) {
					return
				}
				e.logger.Debug("write remote packet", "error", err)
			}
		}
	}()
	return nil
}

// Stop ends capture and playback and closes the source and sink. It can be
// called any number of times.
func (e *Endpoint) Stop() error {
	e.mu.Lock()
	cancel, src, sink, stopped := e.cancel, e.source, e.sink, e.stopped
	e.cancel, e.source, e.sink, e.stopped, e.track = nil, nil, nil, nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		close(stopped)
	}
	e.done.Wait()

	var errs []error
	if src != nil {
		errs = append(errs, src.Close())
	}
	if sink != nil {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}

var _ openairealtime.MediaEndpoint = (*Endpoint)(nil)
