package renderserver

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	m.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, m))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.UseThread)
	assert.Equal(t, rendering.RGBA(0.3, 0.3, 0.3, 1), cfg.DefaultClearColor)
	assert.Equal(t, rendering.RGBA(0, 0, 0, 1), cfg.BootColor)
	assert.Nil(t, cfg.BootImage)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "splash.png"), 3, 2)
	path := filepath.Join(dir, "render.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[render]
use_thread = false
max_viewport_size = [1024, 768]
default_clear_color = [0.1, 0.2, 0.3]
debug_sync = true

[boot]
image = "splash.png"
color = [1.0, 1.0, 1.0, 0.5]
scale = false

[shader_globals.wind]
type = "vec2"
value = [1.0, 0.5]

[shader_globals.tint]
type = "color"
value = [1.0, 0.0, 0.0]
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.UseThread)
	assert.Equal(t, image.Pt(1024, 768), cfg.MaxViewportSize)
	assert.Equal(t, rendering.RGBA(0.1, 0.2, 0.3, 1), cfg.DefaultClearColor)
	assert.True(t, cfg.DebugSync)
	assert.False(t, cfg.DebugChanges)

	require.NotNil(t, cfg.BootImage)
	assert.Equal(t, image.Pt(3, 2), cfg.BootImage.Bounds().Size())
	assert.Equal(t, rendering.RGBA(1, 1, 1, 0.5), cfg.BootColor)
	assert.False(t, cfg.BootScale)
	assert.True(t, cfg.BootFilter, "unset keeps the default")

	assert.Equal(t, map[string]rendering.GlobalShaderParameter{
		"wind": {Type: rendering.GlobalVarTypeVec2, Value: geom.V2(1, 0.5)},
		"tint": {Type: rendering.GlobalVarTypeColor, Value: rendering.RGBA(1, 0, 0, 1)},
	}, cfg.GlobalShaderParameters)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown key", "[render]\nuse_threads = true\n"},
		{"bad viewport size", "[render]\nmax_viewport_size = [1]\n"},
		{"bad clear color", "[render]\ndefault_clear_color = [1.0]\n"},
		{"bad boot color", "[boot]\ncolor = [1.0, 2.0]\n"},
		{"missing boot image", "[boot]\nimage = \"missing.png\"\n"},
		{"unknown global type", "[shader_globals.x]\ntype = \"mat3\"\nvalue = 1\n"},
		{"bad global value", "[shader_globals.x]\ntype = \"bool\"\nvalue = 1\n"},
		{"not toml", "[render\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig([]byte(tt.toml), t.TempDir())
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestBootImageDetectedByContent(t *testing.T) {
	dir := t.TempDir()

	// A PNG with a misleading extension still decodes.
	p := filepath.Join(dir, "splash.jpg")
	writePNG(t, p, 4, 4)
	m, err := LoadBootImage(p)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 4), m.Bounds().Size())

	txt := filepath.Join(dir, "splash.png")
	require.NoError(t, os.WriteFile(txt, []byte("definitely not an image"), 0o600))
	_, err = LoadBootImage(txt)
	assert.ErrorContains(t, err, "unsupported format")

	// Right magic, truncated body.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	_, err = decodeBootImage(buf.Bytes()[:20])
	assert.Error(t, err)
}

func TestOptionsApplyOverConfig(t *testing.T) {
	collabs, _, _ := testCollaborators()
	s, err := New(DefaultConfig(), collabs,
		WithThread(false),
		WithBlockOnDraw(true),
		WithDebugChanges(true),
		WithClearColor(rendering.RGBA(1, 0, 0, 1)),
		WithGlobalShaderParameter("speed", rendering.GlobalShaderParameter{Type: rendering.GlobalVarTypeFloat, Value: float32(2)}),
	)
	require.NoError(t, err)
	defer s.Finish()

	cfg := s.Config()
	assert.False(t, cfg.UseThread)
	assert.True(t, cfg.BlockOnDraw)
	assert.True(t, cfg.DebugChanges)
	assert.Equal(t, rendering.RGBA(1, 0, 0, 1), cfg.DefaultClearColor)
	assert.Contains(t, cfg.GlobalShaderParameters, "speed")

	cfg.GlobalShaderParameters["other"] = rendering.GlobalShaderParameter{}
	assert.NotContains(t, s.Config().GlobalShaderParameters, "other", "Config returns a copy")
}
