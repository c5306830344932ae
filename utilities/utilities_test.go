package utilities

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/rid"
)

func TestBeforeInitialize(t *testing.T) {
	u := New()
	assert.Empty(t, u.VideoAdapterName())
	assert.Empty(t, u.VideoAdapterAPIVersion())
	assert.Zero(t, u.MaxTextureSize())
	assert.False(t, u.IsLowEnd())
	u.Finalize()
}

func TestInitializeNoopAdapter(t *testing.T) {
	u := New()
	require.NoError(t, u.Initialize())
	defer u.Finalize()

	assert.Equal(t, u.Adapter().Name, u.VideoAdapterName())
	assert.Equal(t, u.Adapter().Vendor, u.VideoAdapterVendor())
	assert.NotEmpty(t, u.VideoAdapterAPIVersion())
	assert.Equal(t, int(gputypes.DefaultLimits().MaxTextureDimension2D), u.MaxTextureSize())
	assert.Equal(t, lowEnd(u.Adapter().DeviceType), u.IsLowEnd())

	require.NoError(t, u.Initialize(), "second initialize is a no-op")
}

func TestFinalizeTwice(t *testing.T) {
	u := New()
	require.NoError(t, u.Initialize())
	u.Finalize()
	u.Finalize()
	assert.Zero(t, u.MaxTextureSize())
}

func TestUnavailableBackendFallsBack(t *testing.T) {
	u := New(WithBackend(gputypes.Backend(255)))
	require.NoError(t, u.Initialize())
	u.Finalize()
}

func TestLowEnd(t *testing.T) {
	assert.False(t, lowEnd(gputypes.DeviceTypeDiscreteGPU))
	assert.False(t, lowEnd(gputypes.DeviceTypeIntegratedGPU))
	assert.True(t, lowEnd(gputypes.DeviceTypeCPU))
}

func TestOSFeature(t *testing.T) {
	tests := []struct {
		goos, feature string
		want          bool
	}{
		{"linux", "s3tc", true},
		{"linux", "BPTC", true},
		{"linux", "etc2", false},
		{"android", "etc2", true},
		{"ios", "astc", true},
		{"ios", "s3tc", false},
		{"js", "web", true},
		{"windows", "windows", true},
		{"windows", "linux", false},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.feature, func(t *testing.T) {
			assert.Equal(t, tt.want, osFeature(tt.goos, tt.feature))
		})
	}
}

func TestOwnsNothing(t *testing.T) {
	u := New()
	r := rid.Next()
	assert.False(t, u.Owns(r))
	assert.False(t, u.Free(r))
}
