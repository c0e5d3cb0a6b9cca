package parkour

import (
	"log/slog"
)

// Builder configures a Manager before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	conf      Config
	log       *slog.Logger
	levels    LevelProvider
	options   []ProviderOption
	assets    AssetProvider
	presenter Presenter
	handlers  []RunHandler
	noStart   bool
}

// NewBuilder creates a new builder using DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{conf: DefaultConfig()}
}

// Config sets the configuration.
func (b *Builder) Config(conf Config) *Builder {
	b.conf = conf
	return b
}

// Logger sets the logger. Default: slog.Default().
func (b *Builder) Logger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Levels sets the provider levels are loaded from.
//
// Example:
//
//	builder.Levels(set, parkour.WithGracePeriod(time.Minute))
func (b *Builder) Levels(p LevelProvider, opts ...ProviderOption) *Builder {
	b.levels = p
	b.options = append(b.options, opts...)
	return b
}

// Assets sets the provider that delivers level tracks. Default: NopAssets.
func (b *Builder) Assets(a AssetProvider) *Builder {
	b.assets = a
	return b
}

// Presenter sets how feedback is shown to players. Default: PlayerPresenter.
func (b *Builder) Presenter(p Presenter) *Builder {
	b.presenter = p
	return b
}

// Handler adds a handler that is notified of run outcomes.
func (b *Builder) Handler(h RunHandler) *Builder {
	b.handlers = append(b.handlers, h)
	return b
}

// Manual prevents Init from starting the scheduler, leaving ticks to Scheduler().Tick.
func (b *Builder) Manual() *Builder {
	b.noStart = true
	return b
}

// Init creates the Manager and starts it.
// It panics if no level provider was set or the configuration is invalid.
func (b *Builder) Init() *Manager {
	if b.levels == nil {
		panic("parkour: no level provider configured")
	}
	if err := b.conf.Validate(); err != nil {
		panic("parkour: invalid config: " + err.Error())
	}
	log := b.log
	if log == nil {
		log = slog.Default()
	}

	options := defaultProviderOptions()
	for _, opt := range b.options {
		opt(&options)
	}

	m := newManager(b.conf, log, b.levels, options)
	if b.assets != nil {
		m.assets = b.assets
	}
	if b.presenter != nil {
		m.presenter = b.presenter
	} else {
		m.presenter = PlayerPresenter{}
	}
	switch len(b.handlers) {
	case 0:
	case 1:
		m.handler = b.handlers[0]
	default:
		m.handler = MultiRunHandler(b.handlers)
	}

	if !b.noStart {
		m.Start()
	}
	return m
}
