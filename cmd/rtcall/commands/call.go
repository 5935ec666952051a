package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtcall/pkg/cli"
	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
	"github.com/haivivi/rtcall/pkg/rtcmedia"
)

var (
	callFlags    sessionFlags
	callDuration time.Duration
	callFormat   string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place one voice call",
	Long: `Place one voice call and stay on the line until interrupted.

The call ends on Ctrl-C, when --duration elapses, or when the connection
drops. A summary with the conversation transcript is printed afterwards.

Examples:
  rtcall call --duration 20s
  rtcall call -i question.ogg -o answer.ogg --voice verse
  rtcall call -f session.yaml --format json`,
	RunE: runCall,
}

func init() {
	callFlags.register(callCmd.Flags())
	callCmd.Flags().DurationVarP(&callDuration, "duration", "d", 0, "hang up after this long (default: until interrupted)")
	callCmd.Flags().StringVar(&callFormat, "format", "", "summary format (yaml, json; default: panel)")
	rootCmd.AddCommand(callCmd)
}

// callSummary is printed when a call ends.
type callSummary struct {
	SessionID string                            `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Model     string                            `json:"model" yaml:"model"`
	Voice     string                            `json:"voice" yaml:"voice"`
	Connected bool                              `json:"connected" yaml:"connected"`
	Duration  string                            `json:"duration" yaml:"duration"`
	Media     rtcmedia.Stats                    `json:"media" yaml:"media"`
	Recording *recording                        `json:"recording,omitempty" yaml:"recording,omitempty"`
	Items     []openairealtime.ConversationItem `json:"items" yaml:"items"`
}

// recording describes the file written by --output.
type recording struct {
	Path  string `json:"path" yaml:"path"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// statRecording returns nil when nothing was recorded at path.
func statRecording(path string) *recording {
	if path == "" {
		return nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &recording{Path: path, Bytes: fi.Size()}
}

func runCall(cmd *cobra.Command, args []string) error {
	var format cli.OutputFormat
	if callFormat != "" {
		f, err := cli.ParseOutputFormat(callFormat)
		if err != nil {
			return err
		}
		format = f
	}

	ctx, err := resolveContext()
	if err != nil {
		return err
	}
	p := printer()

	var (
		once         sync.Once
		disconnected = make(chan struct{})
		connectedAt  time.Time
		mu           sync.Mutex
	)
	obs := openairealtime.ObserverFuncs{
		StatusChange: func(status string) { p.Info("%s", status) },
		StateChange: func(from, to openairealtime.State) {
			p.Debug("state %s -> %s", from, to)
		},
		Connected: func() {
			mu.Lock()
			connectedAt = time.Now()
			mu.Unlock()
		},
		Disconnected: func() { once.Do(func() { close(disconnected) }) },
	}

	engine, media, err := callFlags.newEngine(ctx, obs)
	if err != nil {
		return err
	}
	cfg := engine.Config()
	p.Debug("model=%s voice=%s max_items=%d", cfg.Model, cfg.Voice, cfg.MaxConversationItems)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	callCtx, cancel := context.WithTimeout(sigCtx, callFlags.negotiationTimeout(ctx))
	err = engine.Call(callCtx)
	cancel()
	if err != nil {
		if errors.Is(err, openairealtime.ErrSessionClosed) {
			return fmt.Errorf("call interrupted during negotiation")
		}
		return err
	}

	var timeout <-chan time.Time
	if callDuration > 0 {
		timer := time.NewTimer(callDuration)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-sigCtx.Done():
		p.Debug("interrupted")
	case <-timeout:
		p.Debug("duration elapsed")
	case <-disconnected:
	}

	summary := callSummary{
		SessionID: engine.SessionID(),
		Model:     cfg.Model,
		Voice:     cfg.Voice,
		Items:     engine.History(),
	}
	engine.HangUp()
	summary.Media = media.Stats()
	// The sink is closed by HangUp, so the file size is final.
	summary.Recording = statRecording(callFlags.output)

	mu.Lock()
	if !connectedAt.IsZero() {
		summary.Connected = true
		summary.Duration = cli.FormatDuration(time.Since(connectedAt))
	}
	mu.Unlock()

	if format != "" {
		return cli.Output(os.Stdout, format, summary)
	}
	fmt.Println(renderSummary(summary))
	return nil
}

func renderSummary(s callSummary) string {
	status, failed := "ended", false
	if !s.Connected {
		status, failed = "never connected", true
	}
	fields := []cli.Field{
		{Key: "session", Value: orDash(s.SessionID)},
		{Key: "model", Value: s.Model},
		{Key: "voice", Value: s.Voice},
		{Key: "duration", Value: orDash(s.Duration)},
		{Key: "frames sent", Value: fmt.Sprint(s.Media.FramesSent)},
		{Key: "packets received", Value: fmt.Sprint(s.Media.PacketsReceived)},
	}
	if s.Recording != nil {
		fields = append(fields, cli.Field{
			Key:   "recording",
			Value: fmt.Sprintf("%s (%s)", s.Recording.Path, cli.FormatBytes(s.Recording.Bytes)),
		})
	}
	var lines []string
	for _, it := range s.Items {
		if t := it.Transcript(); t != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", orDash(it.Role), t))
		}
	}
	return cli.Panel{
		Styles:   cli.NewStyles(cli.DefaultTheme),
		Title:    "rtcall",
		Status:   status,
		Failed:   failed,
		Fields:   fields,
		Lines:    lines,
		MaxLines: 20,
		Width:    80,
	}.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
