// Command rtcall places voice calls to the OpenAI Realtime API over WebRTC.
//
// Usage:
//
//	rtcall [flags] <command> [args]
//
// Commands:
//
//	config   - Manage contexts (API keys and session defaults)
//	call     - Place one call from the terminal
//	serve    - Run the HTTP control surface
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/rtcall/cmd/rtcall/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
