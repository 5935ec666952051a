package openairealtime

// Observer receives the lifecycle signals of an Engine. Methods are called
// from engine and transport goroutines and must not block.
type Observer interface {
	// OnStatusChange reports a human-readable status line.
	OnStatusChange(status string)

	// OnStateChange reports a negotiation state transition.
	OnStateChange(from, to State)

	// OnConnected fires when the peer connection becomes connected.
	OnConnected()

	// OnDisconnected fires once per session when it ends.
	OnDisconnected()

	// OnEvent reports every event sent or received on the event channel.
	// Undecodable inbound messages are reported as EventTypeInvalid.
	OnEvent(dir Direction, eventType string)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	StatusChange func(status string)
	StateChange  func(from, to State)
	Connected    func()
	Disconnected func()
	Event        func(dir Direction, eventType string)
}

func (f ObserverFuncs) OnStatusChange(status string) {
	if f.StatusChange != nil {
		f.StatusChange(status)
	}
}

func (f ObserverFuncs) OnStateChange(from, to State) {
	if f.StateChange != nil {
		f.StateChange(from, to)
	}
}

func (f ObserverFuncs) OnConnected() {
	if f.Connected != nil {
		f.Connected()
	}
}

func (f ObserverFuncs) OnDisconnected() {
	if f.Disconnected != nil {
		f.Disconnected()
	}
}

func (f ObserverFuncs) OnEvent(dir Direction, eventType string) {
	if f.Event != nil {
		f.Event(dir, eventType)
	}
}

// MultiObserver fans every signal out to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) OnStatusChange(status string) {
	for _, o := range m {
		o.OnStatusChange(status)
	}
}

func (m MultiObserver) OnStateChange(from, to State) {
	for _, o := range m {
		o.OnStateChange(from, to)
	}
}

func (m MultiObserver) OnConnected() {
	for _, o := range m {
		o.OnConnected()
	}
}

func (m MultiObserver) OnDisconnected() {
	for _, o := range m {
		o.OnDisconnected()
	}
}

func (m MultiObserver) OnEvent(dir Direction, eventType string) {
	for _, o := range m {
		o.OnEvent(dir, eventType)
	}
}
