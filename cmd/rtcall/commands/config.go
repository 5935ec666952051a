package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtcall/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts.

A context holds an API account and the session defaults used by call and
serve. Flags on those commands override context values.

Examples:
  rtcall config add-context dev --api-key sk-xxx
  rtcall config use-context dev
  rtcall config set dev voice verse
  rtcall config set dev ice_servers stun:stun.l.google.com:19302,turn:turn.example.com:3478
  rtcall config view dev`,
}

var (
	newContext cli.Context
	viewFormat string
)

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx := newContext
		if err := cfg.AddContext(args[0], &ctx); err != nil {
			return err
		}
		p := printer()
		p.Success("Context %q saved to %s", args[0], cfg.Path())
		if cfg.CurrentContext == args[0] {
			p.Info("Current context is now %q", args[0])
		}
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		printer().Success("Switched to context %q", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:     "delete-context <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		printer().Success("Deleted context %q", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Show the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			return fmt.Errorf("no current context set")
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			printer().Info("No contexts. Create one with: rtcall config add-context <name>")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tMODEL\tVOICE\tAPI KEY")
		for _, name := range names {
			ctx := cfg.Contexts[name]
			mark := ""
			if name == cfg.CurrentContext {
				mark = "*"
			}
			sc := ctx.SessionConfig()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, name, sc.Model, sc.Voice, cli.MaskAPIKey(ctx.APIKey))
		}
		return w.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <key> <value>",
	Short: "Set one field of a context",
	Long: `Set one field of a context.

Keys: api_key, base_url, organization, project, model, voice, instructions,
temperature, max_conversation_items, timeout, ice_servers.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx, ok := cfg.Contexts[args[0]]
		if !ok {
			return fmt.Errorf("context %q not found", args[0])
		}
		if err := ctx.Set(args[1], args[2]); err != nil {
			return err
		}
		if err := ctx.SessionConfig().Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		printer().Success("Set %s.%s", args[0], args[1])
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view [context]",
	Short: "Show a context with its API key masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" && cfg.CurrentContext == "" {
			return fmt.Errorf("no context given and no current context set")
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}
		format, err := cli.ParseOutputFormat(viewFormat)
		if err != nil {
			return err
		}
		return cli.Output(os.Stdout, format, ctx.Masked())
	},
}

func init() {
	f := configAddContextCmd.Flags()
	f.StringVar(&newContext.APIKey, "api-key", "", "OpenAI API key")
	f.StringVar(&newContext.BaseURL, "base-url", "", "realtime endpoint URL")
	f.StringVar(&newContext.Organization, "organization", "", "OpenAI organization ID")
	f.StringVar(&newContext.Project, "project", "", "OpenAI project ID")
	f.StringVar(&newContext.Model, "model", "", "realtime model")
	f.StringVar(&newContext.Voice, "voice", "", "assistant voice")
	f.StringVar(&newContext.Instructions, "instructions", "", "system instructions")

	configViewCmd.Flags().StringVar(&viewFormat, "format", "yaml", "output format (yaml, json)")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configViewCmd)
	rootCmd.AddCommand(configCmd)
}
