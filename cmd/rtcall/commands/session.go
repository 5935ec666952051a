package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/haivivi/rtcall/pkg/cli"
	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
	"github.com/haivivi/rtcall/pkg/rtcmedia"
)

// sessionFlags are shared by call and serve. Set flags override the
// context.
type sessionFlags struct {
	file         string
	model        string
	voice        string
	instructions string
	temperature  float64
	maxItems     int
	timeout      time.Duration

	input  string
	loop   bool
	output string
}

func (f *sessionFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.file, "file", "f", "", "session file (YAML or JSON, - for stdin)")
	fs.StringVar(&f.model, "model", "", "realtime model")
	fs.StringVar(&f.voice, "voice", "", "assistant voice")
	fs.StringVar(&f.instructions, "instructions", "", "system instructions")
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature (0.6-1.2)")
	fs.IntVar(&f.maxItems, "max-items", 0, "conversation items kept before the oldest is deleted")
	fs.DurationVar(&f.timeout, "timeout", 0, "negotiation timeout (default from context, 30s)")
	fs.StringVarP(&f.input, "input", "i", "", "Ogg/Opus file streamed as the microphone (default: silence)")
	fs.BoolVar(&f.loop, "loop", false, "loop the input file")
	fs.StringVarP(&f.output, "output", "o", "", "record assistant audio to this Ogg/Opus file")
}

// sessionConfig merges context, session file and flags, in that order.
func (f *sessionFlags) sessionConfig(ctx *cli.Context) (openairealtime.SessionConfig, error) {
	cfg := ctx.SessionConfig()
	if f.file != "" {
		loaded, err := cli.LoadSession(f.file, cfg)
		if err != nil {
			return openairealtime.SessionConfig{}, err
		}
		cfg = loaded
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.voice != "" {
		cfg.Voice = f.voice
	}
	if f.instructions != "" {
		cfg.Instructions = f.instructions
	}
	if f.temperature != 0 {
		cfg.Temperature = f.temperature
	}
	if f.maxItems != 0 {
		cfg.MaxConversationItems = f.maxItems
	}
	return cfg, cfg.Validate()
}

func (f *sessionFlags) negotiationTimeout(ctx *cli.Context) time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return ctx.NegotiationTimeout()
}

func (f *sessionFlags) endpoint(logger *slog.Logger) *rtcmedia.Endpoint {
	opts := []rtcmedia.Option{rtcmedia.WithLogger(logger)}
	if f.input != "" {
		opts = append(opts, rtcmedia.WithSource(rtcmedia.OggFile(f.input, f.loop)))
	}
	if f.output != "" {
		opts = append(opts, rtcmedia.WithSink(rtcmedia.OggRecording(f.output)))
	}
	return rtcmedia.NewEndpoint(opts...)
}

// newEngine wires a client, the media endpoint and observers into an engine.
func (f *sessionFlags) newEngine(ctx *cli.Context, observers ...openairealtime.Observer) (*openairealtime.Engine, *rtcmedia.Endpoint, error) {
	cfg, err := f.sessionConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.Default()
	media := f.endpoint(logger.With("component", "media"))
	opts := []openairealtime.EngineOption{
		openairealtime.WithSessionConfig(cfg),
		openairealtime.WithICEServers(ctx.ICEConfig()...),
		openairealtime.WithLogger(logger.With("component", "engine")),
	}
	for _, o := range observers {
		opts = append(opts, openairealtime.WithObserver(o))
	}
	engine, err := openairealtime.NewEngine(client, media, opts...)
	if err != nil {
		return nil, nil, err
	}
	return engine, media, nil
}
