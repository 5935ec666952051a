// Package cli holds the building blocks of the rtcall command: the context
// configuration file, session file loading, and terminal output.
//
// Contexts live in ~/.rtcall/config.yaml (or $RTCALL_CONFIG):
//
//	current_context: dev
//	contexts:
//	  dev:
//	    api_key: sk-...
//	    model: gpt-4o-mini-realtime-preview-2024-12-17
//	    voice: alloy
//	    max_conversation_items: 10
package cli
