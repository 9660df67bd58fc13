package scanengine

import "time"

// Option configures an Engine at construction time, following the
// teacher's functional-options idiom (eventloop/options.go's
// LoopOption).
type Option interface {
	apply(*engineOptions)
}

type engineOptions struct {
	logger         Logger
	dispatcher     CallbackDispatcher
	restartEnabled *bool
	restartWindow  time.Duration
	restartBurst   int
	numPriorities  int
}

type optionFunc func(*engineOptions)

func (f optionFunc) apply(o *engineOptions) { f(o) }

// WithLogger overrides the engine's Logger (default: DefaultLogger at
// Config.LogLevel, writing to stderr).
func WithLogger(l Logger) Option {
	return optionFunc(func(o *engineOptions) { o.logger = l })
}

// WithCallbackDispatcher overrides the I/O-event callback fan-out
// (default: one goroutine per callback). Embedders with a real
// priority-preemptive worker pool supply their own.
func WithCallbackDispatcher(d CallbackDispatcher) Option {
	return optionFunc(func(o *engineOptions) { o.dispatcher = d })
}

// WithRestartEnabled overrides Config.RestartEnabled.
func WithRestartEnabled(enabled bool) Option {
	return optionFunc(func(o *engineOptions) { o.restartEnabled = &enabled })
}

// WithRestartThrottle overrides Config.RestartWindow/RestartBurst.
func WithRestartThrottle(window time.Duration, burst int) Option {
	return optionFunc(func(o *engineOptions) {
		o.restartWindow = window
		o.restartBurst = burst
	})
}

// WithNumPriorities overrides Config.NumPriorities.
func WithNumPriorities(n int) Option {
	return optionFunc(func(o *engineOptions) { o.numPriorities = n })
}

// resolveOptions applies opts over cfg's defaults, following
// eventloop/options.go's resolveLoopOptions pattern (nil options
// tolerated and skipped).
func resolveOptions(cfg Config, opts []Option) engineOptions {
	resolved := engineOptions{
		restartEnabled: &cfg.RestartEnabled,
		restartWindow:  cfg.RestartWindow,
		restartBurst:   cfg.RestartBurst,
		numPriorities:  cfg.NumPriorities,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&resolved)
	}
	if resolved.logger == nil {
		resolved.logger = NewDefaultLogger(cfg.LogLevel, nil)
	}
	if resolved.dispatcher == nil {
		resolved.dispatcher = defaultDispatcher{}
	}
	return resolved
}
