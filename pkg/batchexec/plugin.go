package batchexec

import "context"

// Plugin extends an Executor with optional behavior. Plugins are initialized
// in registration order by Start and shut down in reverse order by Stop.
type Plugin interface {
	// Name returns a unique identifier used in logs.
	Name() string

	// Initialize is called once from Start. Long-running work must be started
	// in a goroutine bound to ctx.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// TimingsController reads and updates the engine intervals at runtime.
type TimingsController interface {
	Timings() Timings
	SetTimings(t Timings) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	RPCURL  string
	Account Account
	Logger  Logger
	Engine  TimingsController
}

// BasePlugin provides no-op Initialize and Shutdown methods.
type BasePlugin struct{}

func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
