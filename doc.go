// Package renderserver provides a thread-routing rendering server facade.
//
// # Overview
//
// A Server exposes one API for textures, shaders and materials, global
// shader parameters, canvases and viewports. It can be called from any
// goroutine. Mutating operations are routed to a single render thread
// through a FIFO command queue, and queries run on the caller. The work
// itself is done by collaborators (texture storage, material storage,
// canvas culler, viewport manager, utilities and compositor) that the
// server never needs to know the internals of.
//
// # Quick Start
//
//	import "github.com/gogpu/renderserver"
//
//	srv, err := renderserver.NewDefault(renderserver.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Finish()
//
//	vp := srv.ViewportCreate()
//	srv.ViewportSetSize(vp, 640, 480)
//	srv.ViewportAttachToScreen(vp, geom.Rect2{}, rendering.MainWindowID)
//
//	canvas := srv.CanvasCreate()
//	srv.ViewportAttachCanvas(vp, canvas)
//	item := srv.CanvasItemCreate()
//	srv.CanvasItemSetParent(item, canvas)
//	srv.CanvasItemAddRect(item, geom.R2(10, 10, 100, 50), rendering.RGBA(1, 0, 0, 1))
//
//	srv.Draw(true, 1.0/60)
//
// # Resource IDs
//
// Creating a resource is two-phase. The RID is allocated on the caller and
// returned at once; its initialization is queued like any other write, so
// operations issued on the RID afterwards run after it. Free releases a RID
// at most once.
//
// # Threading
//
// In threaded mode (Config.UseThread) Init starts a goroutine locked to
// its OS thread. Operations on collaborators that can create resources
// asynchronously run on the caller. In single-threaded mode every caller
// is the render thread and every operation runs before it returns.
//
// After Finish has begun, writes are dropped and logged, creation returns
// rid.Invalid, and Free, CallOnRenderThread and RequestFrameDrawnCallback
// return ErrServerStopped.
//
// # Frames
//
// Draw runs a frame on the render thread: pending commands are flushed,
// the compositor begins a frame, viewports are drawn, visibility notifiers
// are updated, frame-drawn callbacks fire and the frame ends. With
// profiling enabled the frame is sampled into FrameProfile.
package renderserver
