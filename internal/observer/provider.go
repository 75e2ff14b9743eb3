package observer

// Provider reads the host's playback surface. It is polled and never
// mutated by the observer.
//
// Observe returns nil (or an error) when no track can be observed; both are
// treated as "nothing playing" for that tick.
type Provider interface {
	Observe() (*Observation, error)
}

// SignalProvider is implemented by providers that expose a cheap identity
// proxy, such as the host page title. A full observation is triggered only
// when the signal differs from the last one seen.
type SignalProvider interface {
	Signal() (string, error)
}

// ProgressProvider is implemented by providers that can read position and
// transport state without the identity fields.
type ProgressProvider interface {
	Progress() (Progress, error)
}
