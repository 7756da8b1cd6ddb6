package suggest

import (
	"github.com/bastiangx/nickserve/pkg/config"
	"github.com/bastiangx/nickserve/pkg/roster"
	"github.com/bastiangx/nickserve/pkg/tracking"
)

// Engine answers completion requests from the state held in a tracking
// store. Options are read from the store on every request, so a reload
// through Reload applies immediately.
type Engine struct {
	store    *tracking.Store
	setup    config.SetupConfig
	channels *roster.Index
}

var _ ICompleter = (*Engine)(nil)

// New creates an engine over store with the configured setup lists.
func New(store *tracking.Store, setup config.SetupConfig) *Engine {
	e := &Engine{store: store}
	e.setSetup(setup)
	return e
}

// Store returns the tracking store the engine reads.
func (e *Engine) Store() *tracking.Store {
	return e.store
}

// Reload applies a new config to the engine and its store.
func (e *Engine) Reload(cfg *config.Config) {
	e.store.SetConfig(cfg.Completion)
	e.setSetup(cfg.Setup)
}

func (e *Engine) setSetup(setup config.SetupConfig) {
	e.setup = setup
	e.channels = roster.NewIndex(setup.Channels...)
}

func (e *Engine) options() config.CompletionConfig {
	return e.store.Config()
}
