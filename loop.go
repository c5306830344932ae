package renderserver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/petermattis/goid"

	"github.com/gogpu/renderserver/internal/cmdqueue"
	"github.com/gogpu/renderserver/rendering"
)

// Init starts the server. In threaded mode it spawns the render goroutine,
// locks it to its OS thread and initializes the collaborators there; it
// returns once the loop is running. In single-threaded mode collaborators
// are initialized on the caller.
func (s *Server) Init() error {
	if !s.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	if !s.cfg.UseThread {
		s.renderID.Store(goid.Get())
		if err := s.initCollaborators(); err != nil {
			s.state.Store(int32(StateStopped))
			close(s.done)
			return err
		}
		slogger().Info("renderserver: started", "threaded", false)
		return nil
	}

	ready := make(chan error, 1)
	go s.run(ready)
	if err := <-ready; err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}
	slogger().Info("renderserver: render thread started")
	return nil
}

// run is the body of the render goroutine.
func (s *Server) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	id := goid.Get()
	if id <= 0 {
		s.queue.Close()
		ready <- fmt.Errorf("%w: goroutine id %d", ErrNoRenderThreadID, id)
		return
	}
	s.renderID.Store(id)
	if err := s.initCollaborators(); err != nil {
		s.queue.Close()
		ready <- err
		return
	}
	ready <- nil

	ctx := context.Background()
	for !s.exit.Load() {
		if err := s.queue.WaitAndFlush(ctx); err != nil {
			break
		}
	}

	// Everything queued before the exit marker runs before teardown.
	s.queue.Drain()
	s.shutdown()
	slogger().Info("renderserver: render thread stopped")
}

func (s *Server) initCollaborators() error {
	for _, c := range s.collabs.all() {
		lc, ok := c.(rendering.Lifecycle)
		if !ok {
			continue
		}
		if err := lc.Initialize(); err != nil {
			return fmt.Errorf("renderserver: initialize %T: %w", c, err)
		}
	}

	s.collabs.Viewports.SetDefaultClearColor(s.cfg.DefaultClearColor)
	s.collabs.Compositor.SetBootImage(s.cfg.BootImage, s.cfg.BootColor, s.cfg.BootScale, s.cfg.BootFilter)
	return nil
}

// shutdown closes the queue and tears the collaborators down in reverse
// initialization order. It runs on the render thread after the last drain.
func (s *Server) shutdown() {
	if n := s.queue.Close(); n > 0 {
		slogger().Warn("renderserver: commands dropped at shutdown", "count", n)
	}
	all := s.collabs.all()
	for i := len(all) - 1; i >= 0; i-- {
		if lc, ok := all[i].(rendering.Lifecycle); ok {
			lc.Finalize()
		}
	}
}

// Draw requests a frame. In threaded mode the draw is queued behind every
// earlier command and Draw returns at once, or when the frame starts if
// BlockOnDraw is set. In single-threaded mode pending commands are flushed
// and the frame is drawn before Draw returns.
func (s *Server) Draw(swapBuffers bool, frameStep float64) {
	if st := s.State(); st != StateRunning {
		err := ErrServerStopped
		if st == StateNotStarted {
			err = ErrNotStarted
		}
		slogger().Warn("renderserver: draw ignored", "err", err)
		return
	}

	if !s.cfg.UseThread {
		s.queue.Drain()
		s.drawFrame(swapBuffers, frameStep)
		return
	}

	started := make(chan struct{})
	err := s.queue.Push(cmdqueue.Command{Op: "draw", Run: func() {
		close(started)
		s.drawFrame(swapBuffers, frameStep)
	}})
	if err != nil {
		slogger().Warn("renderserver: draw ignored", "err", err)
		return
	}
	if s.cfg.BlockOnDraw && !s.onRenderThread() {
		select {
		case <-started:
		case <-s.done:
		}
	}
}

// drawFrame runs one frame on the render thread.
func (s *Server) drawFrame(swapBuffers bool, frameStep float64) {
	setup := time.Now()
	s.queue.Drain()
	s.frame.setFrameSetupTime(time.Since(setup))

	fp := s.frame.beginFrame()
	fp.mark("begin_frame", func() { s.collabs.Compositor.BeginFrame(frameStep) })
	fp.mark("draw_viewports", func() { s.collabs.Viewports.DrawViewports() })
	fp.mark("canvas_update", func() { s.collabs.Canvas.Update() })
	fp.mark("end_frame", func() { s.collabs.Compositor.EndFrame(swapBuffers) })

	s.frame.fireCallbacks()
	s.frame.endFrame(fp)

	s.queue.Drain()
}

// Sync blocks until every command queued before the call has executed.
// Before Init there is no render thread to wait for; Sync logs and returns.
func (s *Server) Sync() {
	if s.notStarted("sync") {
		return
	}
	if s.cfg.DebugSync && !s.onRenderThread() {
		slogger().Debug("renderserver: sync")
	}
	if err := s.queue.PushAndSync(cmdqueue.Command{Op: "sync"}); err != nil && !errors.Is(err, cmdqueue.ErrClosed) {
		slogger().Warn("renderserver: sync failed", "err", err)
	}
}

// FlushIfPending makes every command queued so far take effect before it
// returns. Called on the render thread it executes them inline. Like Sync it
// returns at once before Init.
func (s *Server) FlushIfPending() {
	if s.notStarted("flush_if_pending") {
		return
	}
	s.queue.FlushIfPending()
}

// notStarted reports, and logs, a call made before Init.
func (s *Server) notStarted(op string) bool {
	if s.State() != StateNotStarted {
		return false
	}
	slogger().Warn("renderserver: "+op+" ignored", "err", ErrNotStarted)
	return true
}

// CallOnRenderThread runs fn on the render thread. On the render thread it
// flushes pending commands and calls fn at once; elsewhere fn is queued.
func (s *Server) CallOnRenderThread(fn func()) error {
	if s.rejecting() {
		return ErrServerStopped
	}
	if s.onRenderThread() {
		s.queue.FlushIfPending()
		fn()
		return nil
	}
	if err := s.queue.Push(cmdqueue.Command{Op: "call_on_render_thread", Run: fn}); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStopped, err)
	}
	return nil
}

// Finish stops the server. Every command queued before Finish runs, then
// the collaborators are torn down. Frame callbacks still pending are
// discarded. Finish is idempotent; later operations are rejected with
// ErrServerStopped.
func (s *Server) Finish() error {
	if s.cfg.UseThread && s.onRenderThread() {
		return ErrOnRenderThread
	}
	s.finishOnce.Do(func() { s.finishErr = s.finish() })
	return s.finishErr
}

func (s *Server) finish() error {
	defer unregister(s)

	if s.state.CompareAndSwap(int32(StateNotStarted), int32(StateStopped)) {
		s.frame.close()
		s.queue.Close()
		close(s.done)
		return nil
	}
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateExiting)) {
		// Init failed.
		return nil
	}
	s.frame.close()

	if s.cfg.UseThread {
		s.exit.Store(true)
		_ = s.queue.Push(cmdqueue.Command{Op: "exit"})
		<-s.done
	} else {
		s.queue.Drain()
		s.shutdown()
		close(s.done)
	}
	s.state.Store(int32(StateStopped))
	return nil
}
