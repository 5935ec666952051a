// Package openairealtime runs voice sessions against OpenAI's Realtime API
// over WebRTC.
//
// A session is set up in two HTTP exchanges. The long-lived API key buys an
// ephemeral credential from {url}/sessions, and that credential signs the
// SDP offer posted to {url}?model=.... The answer is applied to a pion peer
// connection carrying one local audio track and the "oai-events" data
// channel, which transports the JSON event protocol.
//
// # Usage
//
//	client, err := openairealtime.NewClient(apiKey)
//	if err != nil {
//	    return err
//	}
//	engine, err := openairealtime.NewEngine(client, media,
//	    openairealtime.WithSessionConfig(openairealtime.SessionConfig{
//	        Voice:        openairealtime.VoiceAlloy,
//	        Instructions: "You are a helpful assistant.",
//	    }),
//	    openairealtime.WithObserver(openairealtime.ObserverFuncs{
//	        StatusChange: func(s string) { log.Println(s) },
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := engine.Call(ctx); err != nil {
//	    return err
//	}
//	defer engine.HangUp()
//
// media is a MediaEndpoint; package rtcmedia provides one backed by Ogg/Opus
// files.
//
// # Conversation History
//
// The engine keeps the last MaxConversationItems conversation items. When a
// new item pushes the history over the bound, the oldest item is dropped and
// a conversation.item.delete event is sent for it in the same step, so the
// server-side context stays the same size as the local one.
//
// # Lifecycle
//
// Call leaves a live session alone and returns ErrSessionActive, so
// concurrent callers can tell who started it. HangUp may be called at any time
// and any number of times. A negotiation interrupted by HangUp never applies
// its late results nor starts later stages; Call then returns
// ErrSessionClosed and local capture is stopped.
package openairealtime
