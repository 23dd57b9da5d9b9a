package configwatcher

import "github.com/Heesho/donut-miner-miniapp-sub000/pkg/batchexec"

// WithConfigWatcher returns a batchexec Option that reloads the poll and
// settle intervals whenever the TOML config file changes.
//
// Usage:
//
//	ex, err := batchexec.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/batchexec/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) batchexec.Option {
	return batchexec.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches the default config path with default
// settings.
func WithDefaultConfigWatcher() batchexec.Option {
	return WithConfigWatcher(DefaultConfig())
}
