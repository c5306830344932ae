package renderserver

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/renderserver/canvas"
	"github.com/gogpu/renderserver/compositor"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
	"github.com/gogpu/renderserver/storage/material"
	"github.com/gogpu/renderserver/storage/texture"
	"github.com/gogpu/renderserver/utilities"
	"github.com/gogpu/renderserver/viewport"
)

// recordingTextures logs the texture operations that reach the storage and
// whether they ran on the render thread.
type recordingTextures struct {
	*texture.Storage

	mu        sync.Mutex
	srv       *Server
	ops       []string
	offThread int
}

func (r *recordingTextures) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if r.srv != nil && !r.srv.OnRenderThread() {
		r.offThread++
	}
}

func (r *recordingTextures) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *recordingTextures) Texture2DInitialize(tex rid.RID, img image.Image) {
	r.record(fmt.Sprintf("init %d", img.Bounds().Dx()))
	r.Storage.Texture2DInitialize(tex, img)
}

func (r *recordingTextures) Texture2DUpdate(tex rid.RID, img image.Image, layer int) {
	r.record(fmt.Sprintf("update %d", img.Bounds().Dx()))
	r.Storage.Texture2DUpdate(tex, img, layer)
}

func (r *recordingTextures) Free(tex rid.RID) bool {
	r.record("free")
	return r.Storage.Free(tex)
}

type testServer struct {
	*Server
	rec  *recordingTextures
	comp *compositor.Compositor
}

func testCollaborators() (Collaborators, *recordingTextures, *compositor.Compositor) {
	ts := texture.New()
	rec := &recordingTextures{Storage: ts}
	cv := canvas.New(ts)
	comp := compositor.New(compositor.WithScreenSize(rendering.MainWindowID, 16, 16))
	return Collaborators{
		Textures:   rec,
		Materials:  material.New(material.WithoutWatcher()),
		Canvas:     cv,
		Viewports:  viewport.New(ts, cv, comp),
		Utilities:  utilities.New(),
		Compositor: comp,
	}, rec, comp
}

// newTestServer starts a threaded server unless opts say otherwise and
// finishes it when the test ends.
func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	collabs, rec, comp := testCollaborators()
	s, err := New(DefaultConfig(), collabs, opts...)
	require.NoError(t, err)
	rec.srv = s
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Finish() })
	return &testServer{Server: s, rec: rec, comp: comp}
}

func img(w int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, 1))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Collaborators{})
	assert.ErrorIs(t, err, ErrNilCollaborator)

	collabs, _, _ := testCollaborators()
	collabs.Compositor = nil
	_, err = New(DefaultConfig(), collabs)
	assert.ErrorIs(t, err, ErrNilCollaborator)
}

func TestInitTwice(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, StateRunning, s.State())
	assert.ErrorIs(t, s.Init(), ErrAlreadyStarted)
	assert.False(t, s.OnRenderThread())
}

func TestRenderThreadIdentity(t *testing.T) {
	s := newTestServer(t)
	assert.False(t, s.OnRenderThread(), "test goroutine")

	other := make(chan bool, 1)
	go func() { other <- s.OnRenderThread() }()
	assert.False(t, <-other, "plain goroutine")

	inside := make(chan bool, 1)
	require.NoError(t, s.CallOnRenderThread(func() { inside <- s.OnRenderThread() }))
	assert.True(t, <-inside, "render goroutine")

	// Writes from a plain goroutine are queued, not run inline.
	tex := s.Texture2DCreate(img(1))
	s.Texture2DUpdate(tex, img(2), 0)
	s.Sync()
	assert.Zero(t, s.rec.offThread)

	require.NoError(t, s.Finish(), "Finish from a plain goroutine")
	assert.Equal(t, StateStopped, s.State())
}

func TestCommandsRunInOrderOnRenderThread(t *testing.T) {
	s := newTestServer(t)

	tex := s.Texture2DCreate(img(1))
	require.True(t, tex.IsValid())
	want := []string{"init 1"}
	for i := 2; i <= 50; i++ {
		s.Texture2DUpdate(tex, img(i), 0)
		want = append(want, fmt.Sprintf("update %d", i))
	}
	require.NoError(t, s.Free(tex))
	want = append(want, "free")
	s.Sync()

	assert.Equal(t, want, s.rec.snapshot())
	assert.Zero(t, s.rec.offThread)
}

func TestCommandsFromManyGoroutinesKeepPerCallerOrder(t *testing.T) {
	s := newTestServer(t)

	const callers, per = 4, 25
	texes := make([]rid.RID, callers)
	var wg sync.WaitGroup
	for c := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			texes[c] = s.Texture2DCreate(img(1))
			for i := range per {
				s.Texture2DUpdate(texes[c], img(2+i), 0)
			}
		}()
	}
	wg.Wait()
	s.Sync()

	for _, tex := range texes {
		got := s.Texture2DGet(tex)
		require.NotNil(t, got)
		assert.Equal(t, 1+per, got.Bounds().Dx(), "last update wins")
	}
	assert.Len(t, s.rec.snapshot(), callers*(1+per))
}

func TestCreateDoesNotWaitForQueue(t *testing.T) {
	s := newTestServer(t)

	gate := make(chan struct{})
	require.NoError(t, s.CallOnRenderThread(func() { <-gate }))
	tex := s.Texture2DCreate(img(1))
	for range 100 {
		s.Texture2DUpdate(tex, img(2), 0)
	}

	late := s.Texture2DCreate(img(3))
	assert.True(t, late.IsValid())
	assert.True(t, s.Owns(late))
	assert.GreaterOrEqual(t, s.PendingCommands(), 100)
	s.Texture2DUpdate(late, img(4), 0)

	close(gate)
	s.Sync()
	ops := s.rec.snapshot()
	require.Len(t, ops, 103)
	assert.Equal(t, []string{"init 3", "update 4"}, ops[101:])
}

func TestFreeAtMostOnce(t *testing.T) {
	s := newTestServer(t)
	tex := s.Texture2DCreate(img(1))

	require.NoError(t, s.Free(tex))
	assert.False(t, s.Owns(tex))
	assert.ErrorIs(t, s.Free(tex), ErrInvalidRID)
	assert.ErrorIs(t, s.Free(rid.Invalid), ErrInvalidRID)
	assert.ErrorIs(t, s.Free(rid.Next()), ErrInvalidRID)
	s.Sync()

	assert.Equal(t, []string{"init 1", "free"}, s.rec.snapshot())
}

func TestFreeOnRenderThreadFlushesFirst(t *testing.T) {
	s := newTestServer(t)
	tex := s.Texture2DCreate(img(1))

	started, proceed := make(chan struct{}), make(chan struct{})
	var (
		freeErr error
		atFree  []string
	)
	require.NoError(t, s.CallOnRenderThread(func() {
		close(started)
		<-proceed
		freeErr = s.Free(tex)
		atFree = s.rec.snapshot()
	}))
	<-started
	s.Texture2DUpdate(tex, img(7), 0)
	close(proceed)
	s.Sync()

	require.NoError(t, freeErr)
	assert.Equal(t, []string{"init 1", "update 7", "free"}, atFree)
}

func TestSyncWaitsForCommandThatFlushes(t *testing.T) {
	s := newTestServer(t)

	started, proceed, release := make(chan struct{}), make(chan struct{}), make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.CallOnRenderThread(func() {
		close(started)
		<-proceed
		s.FlushIfPending()
		<-release
		finished.Store(true)
	}))
	<-started

	synced := make(chan struct{})
	go func() {
		s.Sync()
		close(synced)
	}()
	require.Eventually(t, func() bool { return s.PendingCommands() == 1 }, time.Second, time.Millisecond)
	close(proceed)
	require.Eventually(t, func() bool { return s.PendingCommands() == 0 }, time.Second, time.Millisecond)

	select {
	case <-synced:
		t.Fatal("Sync returned while an earlier command was still running")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	<-synced
	assert.True(t, finished.Load())
}

func TestCallOnRenderThread(t *testing.T) {
	s := newTestServer(t)

	var on bool
	require.NoError(t, s.CallOnRenderThread(func() { on = s.OnRenderThread() }))
	s.Sync()
	assert.True(t, on)
}

func TestQueriesRunOnCaller(t *testing.T) {
	s := newTestServer(t, WithDebugSync(true))
	tex := s.Texture2DCreate(img(3))
	s.Sync()
	assert.Equal(t, 3, s.Texture2DGet(tex).Bounds().Dx())
	assert.Equal(t, rendering.RGBA(0.3, 0.3, 0.3, 1), s.DefaultClearColor())
}

func TestFinishRunsQueuedCommands(t *testing.T) {
	s := newTestServer(t)
	tex := s.Texture2DCreate(img(1))
	s.Texture2DUpdate(tex, img(2), 0)

	require.NoError(t, s.Finish())
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, []string{"init 1", "update 2"}, s.rec.snapshot())
	assert.NoError(t, s.Finish(), "idempotent")
}

func TestRejectedAfterFinish(t *testing.T) {
	s := newTestServer(t)
	tex := s.Texture2DCreate(img(1))
	require.NoError(t, s.Finish())
	before := s.rec.snapshot()

	assert.Equal(t, rid.Invalid, s.Texture2DCreate(img(2)))
	assert.ErrorIs(t, s.Free(tex), ErrServerStopped)
	assert.ErrorIs(t, s.CallOnRenderThread(func() {}), ErrServerStopped)
	assert.ErrorIs(t, s.RequestFrameDrawnCallback(func() {}), ErrServerStopped)
	s.Texture2DUpdate(tex, img(3), 0)
	s.Draw(true, 0)
	s.Sync()

	assert.Equal(t, before, s.rec.snapshot())
	assert.Zero(t, s.FramesDrawn())
}

func TestFinishFromRenderThread(t *testing.T) {
	s := newTestServer(t)
	var err error
	require.NoError(t, s.CallOnRenderThread(func() { err = s.Finish() }))
	s.Sync()
	assert.ErrorIs(t, err, ErrOnRenderThread)
	assert.Equal(t, StateRunning, s.State())
}

func TestFinishBeforeInit(t *testing.T) {
	collabs, _, _ := testCollaborators()
	s, err := New(DefaultConfig(), collabs)
	require.NoError(t, err)

	s.Draw(true, 0)
	require.NoError(t, s.Finish())
	assert.Equal(t, StateStopped, s.State())
	assert.Zero(t, s.FramesDrawn())
}

func TestSyncBeforeInitReturns(t *testing.T) {
	h := &captureHandler{}
	SetLogger(slog.New(h))
	t.Cleanup(func() { SetLogger(nil) })

	collabs, _, _ := testCollaborators()
	s, err := New(DefaultConfig(), collabs)
	require.NoError(t, err)
	defer s.Finish()

	done := make(chan struct{})
	go func() {
		s.Sync()
		s.FlushIfPending()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sync blocked before Init")
	}
	assert.Equal(t, StateNotStarted, s.State())
	assert.True(t, h.has("renderserver: sync ignored"))
	assert.True(t, h.has("renderserver: flush_if_pending ignored"))
}

func TestSingleThreaded(t *testing.T) {
	s := newTestServer(t, WithThread(false))
	assert.True(t, s.OnRenderThread())
	assert.False(t, s.Threaded())
	assert.False(t, s.HasFeature(rendering.FeatureMultithreaded))

	tex := s.Texture2DCreate(img(1))
	assert.Equal(t, []string{"init 1"}, s.rec.snapshot(), "runs before returning")

	fired := false
	require.NoError(t, s.RequestFrameDrawnCallback(func() { fired = true }))
	s.Draw(true, 0)
	assert.True(t, fired)
	assert.Equal(t, uint64(1), s.FramesDrawn())

	require.NoError(t, s.Free(tex))
	require.NoError(t, s.Finish())
	assert.Equal(t, []string{"init 1", "free"}, s.rec.snapshot())
}

func TestHasChanged(t *testing.T) {
	s := newTestServer(t)
	assert.False(t, s.HasChanged())

	s.SetDefaultClearColor(rendering.RGBA(1, 0, 0, 1))
	assert.True(t, s.HasChanged())
	assert.False(t, s.HasChanged(), "reading resets")

	_ = s.DefaultClearColor()
	_ = s.VideoAdapterName()
	assert.False(t, s.HasChanged(), "queries do not count")

	tex := s.Texture2DCreate(img(1))
	assert.True(t, s.HasChanged())
	require.NoError(t, s.Free(tex))
	assert.True(t, s.HasChanged())
}

func TestStatusQueries(t *testing.T) {
	s := newTestServer(t)
	assert.True(t, s.HasFeature(rendering.FeatureShaders))
	assert.True(t, s.HasFeature(rendering.FeatureMultithreaded))
	assert.Equal(t, s.collabs.Utilities.VideoAdapterName(), s.VideoAdapterName())
	assert.Equal(t, image.Point{}, s.MaximumViewportSize())
}

func TestTextureFormatSurvivesSnapshot(t *testing.T) {
	s := newTestServer(t)

	gray := image.NewGray(image.Rect(2, 2, 6, 5))
	gray.SetGray(2, 2, color.Gray{Y: 200})
	tex := s.Texture2DCreate(gray)
	alpha := s.Texture2DCreate(image.NewAlpha(image.Rect(0, 0, 2, 2)))
	rgba := s.Texture2DCreate(image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	s.Sync()

	assert.Equal(t, gputypes.TextureFormatR8Unorm, s.TextureGetFormat(tex))
	assert.Equal(t, gputypes.TextureFormatR8Unorm, s.TextureGetFormat(alpha))
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, s.TextureGetFormat(rgba))

	got := s.Texture2DGet(tex)
	require.NotNil(t, got)
	assert.Equal(t, image.Pt(4, 3), got.Bounds().Size())
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, got.RGBAAt(0, 0))

	s.Texture2DUpdate(rgba, image.NewGray(image.Rect(0, 0, 2, 2)), 0)
	s.Sync()
	assert.Equal(t, gputypes.TextureFormatR8Unorm, s.TextureGetFormat(rgba))
}

func TestDebugSyncTracesStatusQueries(t *testing.T) {
	h := &captureHandler{}
	SetLogger(slog.New(h))
	t.Cleanup(func() { SetLogger(nil) })

	s := newTestServer(t, WithDebugSync(true))
	_ = s.HasFeature(rendering.FeatureShaders)
	_ = s.MaximumViewportSize()

	assert.True(t, h.has("op=has_feature"))
	assert.True(t, h.has("op=get_maximum_viewport_size"))
}

func TestQueueStats(t *testing.T) {
	s := newTestServer(t)
	s.Texture2DCreate(img(1))
	s.Sync()
	st := s.QueueStats()
	assert.GreaterOrEqual(t, st.Pushed, uint64(2))
	assert.Zero(t, s.PendingCommands())
}

type captureHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	line := r.Message
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.String()
		return true
	})
	h.mu.Lock()
	h.msgs = append(h.msgs, line)
	h.mu.Unlock()
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) has(sub string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func TestSetLoggerReachesCollaborators(t *testing.T) {
	s := newTestServer(t, WithThread(false))
	h := &captureHandler{}
	SetLogger(slog.New(h))
	t.Cleanup(func() { SetLogger(nil) })
	assert.Same(t, h, Logger().Handler())

	s.Texture2DUpdate(rid.Next(), img(1), 0)
	assert.True(t, h.has("texture: update of unknown texture"))

	require.NoError(t, s.Finish())
	s.Texture2DUpdate(rid.Next(), img(1), 0)
	assert.True(t, h.has("renderserver: operation dropped"))
}

func TestNewServerGetsCurrentLogger(t *testing.T) {
	h := &captureHandler{}
	SetLogger(slog.New(h))
	t.Cleanup(func() { SetLogger(nil) })

	s := newTestServer(t, WithThread(false))
	s.ViewportSetSize(rid.Next(), 1, 1)
	assert.True(t, h.has("viewport: unknown viewport"))
}
