package renderserver

import "github.com/gogpu/renderserver/rendering"

// Option adjusts the Config given to New.
//
// Example:
//
//	srv, err := renderserver.NewDefault(renderserver.DefaultConfig(),
//	    renderserver.WithThread(false),
//	    renderserver.WithDebugChanges(true),
//	)
type Option func(*Config)

// WithThread selects threaded or single-threaded mode.
func WithThread(enabled bool) Option {
	return func(c *Config) {
		c.UseThread = enabled
	}
}

// WithBlockOnDraw makes Draw wait until the render thread starts the frame.
func WithBlockOnDraw(enabled bool) Option {
	return func(c *Config) {
		c.BlockOnDraw = enabled
	}
}

// WithDebugChanges logs every operation that marks the server changed.
func WithDebugChanges(enabled bool) Option {
	return func(c *Config) {
		c.DebugChanges = enabled
	}
}

// WithDebugSync logs synchronous queries issued off the render thread.
func WithDebugSync(enabled bool) Option {
	return func(c *Config) {
		c.DebugSync = enabled
	}
}

// WithClearColor sets the default viewport clear color.
func WithClearColor(col rendering.Color) Option {
	return func(c *Config) {
		c.DefaultClearColor = col
	}
}

// WithGlobalShaderParameter declares a global shader parameter to be loaded
// by GlobalShaderParametersLoadSettings.
func WithGlobalShaderParameter(name string, p rendering.GlobalShaderParameter) Option {
	return func(c *Config) {
		if c.GlobalShaderParameters == nil {
			c.GlobalShaderParameters = make(map[string]rendering.GlobalShaderParameter)
		}
		c.GlobalShaderParameters[name] = p
	}
}
