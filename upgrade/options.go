package upgrade

import (
	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/flash"
	"github.com/bryangrimes/node-cubelets/info"
	"github.com/bryangrimes/node-cubelets/ledger"
	"github.com/bryangrimes/node-cubelets/logging"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCatalog sets where firmware images come from. Required for Start.
func WithCatalog(src catalog.Source) Option {
	return func(o *Orchestrator) { o.catalog = src }
}

// WithInfoResolver sets how blocks of unknown type are resolved. Without
// one, discovered classic blocks stay pending.
func WithInfoResolver(r info.Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithRecorder sets where session and flash history is written.
func WithRecorder(r ledger.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithFlasherOptions adds options for every flash session. The safe check
// is off unless re-enabled here.
func WithFlasherOptions(opts ...flash.Option) Option {
	return func(o *Orchestrator) { o.flashOpts = append(o.flashOpts, opts...) }
}

// WithTimings replaces the orchestrator timings.
//
// Example:
//
//	o := upgrade.New(c, upgrade.WithTimings(upgrade.Timings{Settle: 4 * time.Second}))
func WithTimings(t Timings) Option {
	return func(o *Orchestrator) { o.timings = t.withDefaults() }
}

// WithLogger sets a logger for orchestrator operations.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.log = logging.OrNop(l) }
}
