package renderserver

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"maps"
	"os"
	"path/filepath"
	"sort"

	// Boot image decoders.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/renderserver/rendering"
)

// Config is the construction-time configuration of a Server. The server
// passes most of it through to collaborators without interpreting it.
type Config struct {
	// UseThread runs rendering on a dedicated goroutine locked to an OS
	// thread. When false every caller is treated as the render thread.
	UseThread bool

	// MaxViewportSize caps viewport sizes. Zero means no limit.
	MaxViewportSize image.Point

	// DefaultClearColor is used by viewports that have no clear color.
	DefaultClearColor rendering.Color

	// BootImage is shown until the first frame is drawn. Nil shows only
	// BootColor.
	BootImage  image.Image
	BootColor  rendering.Color
	BootScale  bool
	BootFilter bool

	// BlockOnDraw makes Draw wait until the render thread starts the frame.
	BlockOnDraw bool

	// DebugChanges logs every operation that bumps the change counter.
	DebugChanges bool

	// DebugSync logs queries made from goroutines other than the render
	// thread.
	DebugSync bool

	// GlobalShaderParameters are declared by
	// GlobalShaderParametersLoadSettings.
	GlobalShaderParameters map[string]rendering.GlobalShaderParameter
}

// DefaultConfig returns the default configuration: threaded, no viewport
// limit, dark grey clear color and a black boot screen.
func DefaultConfig() Config {
	return Config{
		UseThread:         true,
		DefaultClearColor: rendering.RGBA(0.3, 0.3, 0.3, 1),
		BootColor:         rendering.RGBA(0, 0, 0, 1),
		BootScale:         true,
		BootFilter:        true,
	}
}

// clone returns c with its own copy of the parameter map.
func (c Config) clone() Config {
	c.GlobalShaderParameters = maps.Clone(c.GlobalShaderParameters)
	return c
}

// configFile is the TOML layout read by LoadConfig.
type configFile struct {
	Render struct {
		UseThread         *bool     `toml:"use_thread"`
		MaxViewportSize   []int     `toml:"max_viewport_size"`
		DefaultClearColor []float64 `toml:"default_clear_color"`
		BlockOnDraw       bool      `toml:"block_on_draw"`
		DebugChanges      bool      `toml:"debug_changes"`
		DebugSync         bool      `toml:"debug_sync"`
	} `toml:"render"`

	Boot struct {
		Image  string    `toml:"image"`
		Color  []float64 `toml:"color"`
		Scale  *bool     `toml:"scale"`
		Filter *bool     `toml:"filter"`
	} `toml:"boot"`

	ShaderGlobals map[string]struct {
		Type  string `toml:"type"`
		Value any    `toml:"value"`
	} `toml:"shader_globals"`
}

// LoadConfig reads a TOML configuration file on top of DefaultConfig.
//
//	[render]
//	use_thread = true
//	max_viewport_size = [4096, 4096]
//	default_clear_color = [0.3, 0.3, 0.3, 1.0]
//
//	[boot]
//	image = "splash.png"
//	color = [0.0, 0.0, 0.0]
//
//	[shader_globals.wind]
//	type = "vec2"
//	value = [1.0, 0.5]
//
// A relative boot image path is resolved against the directory of path.
// Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("renderserver: read config: %w", err)
	}
	return parseConfig(data, filepath.Dir(path))
}

func parseConfig(data []byte, baseDir string) (Config, error) {
	var f configFile
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("renderserver: config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("renderserver: config: %w", err)
	}

	cfg := DefaultConfig()
	r := f.Render
	if r.UseThread != nil {
		cfg.UseThread = *r.UseThread
	}
	if len(r.MaxViewportSize) > 0 {
		if len(r.MaxViewportSize) != 2 || r.MaxViewportSize[0] < 0 || r.MaxViewportSize[1] < 0 {
			return Config{}, fmt.Errorf("renderserver: config: max_viewport_size must be [width, height]")
		}
		cfg.MaxViewportSize = image.Pt(r.MaxViewportSize[0], r.MaxViewportSize[1])
	}
	if r.DefaultClearColor != nil {
		c, err := colorFromSlice(r.DefaultClearColor)
		if err != nil {
			return Config{}, fmt.Errorf("renderserver: config: default_clear_color: %w", err)
		}
		cfg.DefaultClearColor = c
	}
	cfg.BlockOnDraw = r.BlockOnDraw
	cfg.DebugChanges = r.DebugChanges
	cfg.DebugSync = r.DebugSync

	b := f.Boot
	if b.Color != nil {
		c, err := colorFromSlice(b.Color)
		if err != nil {
			return Config{}, fmt.Errorf("renderserver: config: boot color: %w", err)
		}
		cfg.BootColor = c
	}
	if b.Scale != nil {
		cfg.BootScale = *b.Scale
	}
	if b.Filter != nil {
		cfg.BootFilter = *b.Filter
	}
	if b.Image != "" {
		p := b.Image
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		img, err := LoadBootImage(p)
		if err != nil {
			return Config{}, err
		}
		cfg.BootImage = img
	}

	if len(f.ShaderGlobals) > 0 {
		cfg.GlobalShaderParameters = make(map[string]rendering.GlobalShaderParameter, len(f.ShaderGlobals))
		names := make([]string, 0, len(f.ShaderGlobals))
		for name := range f.ShaderGlobals {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			g := f.ShaderGlobals[name]
			typ, ok := rendering.ParseGlobalShaderParameterType(g.Type)
			if !ok {
				return Config{}, fmt.Errorf("renderserver: config: shader global %q: unknown type %q", name, g.Type)
			}
			v, err := rendering.NormalizeGlobalValue(typ, g.Value)
			if err != nil {
				return Config{}, fmt.Errorf("renderserver: config: shader global %q: %w", name, err)
			}
			cfg.GlobalShaderParameters[name] = rendering.GlobalShaderParameter{Type: typ, Value: v}
		}
	}
	return cfg, nil
}

func colorFromSlice(v []float64) (rendering.Color, error) {
	switch len(v) {
	case 3:
		return rendering.RGBA(v[0], v[1], v[2], 1), nil
	case 4:
		return rendering.RGBA(v[0], v[1], v[2], v[3]), nil
	}
	return rendering.Color{}, fmt.Errorf("want 3 or 4 components, got %d", len(v))
}

// bootImageTypes are the image formats accepted as boot images.
var bootImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/bmp":  true,
	"image/webp": true,
	"image/tiff": true,
}

// LoadBootImage reads and decodes a boot image. The format is detected from
// the file contents, not its extension.
func LoadBootImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("renderserver: boot image: %w", err)
	}
	return decodeBootImage(data)
}

func decodeBootImage(data []byte) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("renderserver: boot image: %w", err)
	}
	if kind == filetype.Unknown || !bootImageTypes[kind.MIME.Value] {
		return nil, fmt.Errorf("renderserver: boot image: unsupported format %q", kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("renderserver: boot image (%s): %w", kind.Extension, err)
	}
	return img, nil
}
