package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtcall/cmd/rtcall/internal/build"
	"github.com/haivivi/rtcall/pkg/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput != "" {
			format, err := cli.ParseOutputFormat(formatOutput)
			if err != nil {
				return err
			}
			return cli.Output(os.Stdout, format, build.Get())
		}
		fmt.Println(build.String())
		if verbose {
			info := build.Get()
			fmt.Printf("  go:     %s\n", info.Go)
			if p, err := cli.DefaultConfigPath(); err == nil {
				fmt.Printf("  config: %s\n", p)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&formatOutput, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(versionCmd)
}
