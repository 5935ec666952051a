package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtcall/pkg/cli"
	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

var (
	verbose      bool
	contextName  string
	formatOutput string
)

var rootCmd = &cobra.Command{
	Use:   "rtcall",
	Short: "Voice calls with OpenAI Realtime over WebRTC",
	Long: `rtcall - place and control voice sessions with the OpenAI Realtime API.

Audio flows over WebRTC: the local track is fed from an Ogg/Opus file (or
silence) and the assistant's reply can be recorded to an Ogg/Opus file.

Configuration is stored in ~/.rtcall/config.yaml (override with RTCALL_CONFIG).

Examples:
  # Create a context
  rtcall config add-context dev --api-key sk-xxx --voice verse

  # Call, speaking prompt.ogg and recording the reply
  rtcall call --input prompt.ogg --output reply.ogg --duration 30s

  # Drive calls over HTTP
  rtcall serve --addr :8086`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
}

// GetConfig loads the configuration file.
func GetConfig() (*cli.Config, error) {
	cfg, err := cli.LoadConfig("")
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	return cfg, nil
}

// resolveContext returns the --context context, or the current one.
func resolveContext() (*cli.Context, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

var errNoAPIKey = errors.New("no API key: set api_key in the context or " + cli.EnvAPIKey)

// newClient creates the signaling client of ctx.
func newClient(ctx *cli.Context) (*openairealtime.Client, error) {
	key := ctx.ResolveAPIKey()
	if key == "" {
		return nil, errNoAPIKey
	}
	var opts []openairealtime.Option
	if ctx.BaseURL != "" {
		opts = append(opts, openairealtime.WithHTTPURL(ctx.BaseURL))
	}
	if ctx.Organization != "" {
		opts = append(opts, openairealtime.WithOrganization(ctx.Organization))
	}
	if ctx.Project != "" {
		opts = append(opts, openairealtime.WithProject(ctx.Project))
	}
	return openairealtime.NewClient(key, opts...)
}

func printer() *cli.Printer {
	return cli.NewPrinter(verbose)
}
