package stealq

// Option configures a queue at construction. Functional options, the same
// pattern go-eventloop uses for Loop (e.g. WithMetrics); there is currently
// only one, but the shape is kept open for future construction-time
// settings — spec §6 fixes everything else about the type at compile time.
type Option func(*config)

type config struct {
	name string
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithName attaches a label to the queue, surfaced via Owner.Name and
// Stealer.Name. Purely diagnostic: the queue itself never reads it.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
