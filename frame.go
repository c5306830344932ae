package renderserver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// FrameProfileArea is one profiling sample of the last drawn frame. Times
// are milliseconds from the start of the frame to the end of the area, so
// they never decrease within a frame.
type FrameProfileArea struct {
	Name    string
	CPUMsec float64
	GPUMsec float64
}

// frameRegistry holds the frame-drawn callbacks and the profiling state.
// Callback registration is safe from any goroutine; beginFrame, endFrame and
// fireCallbacks run on the render thread only.
type frameRegistry struct {
	mu        sync.Mutex
	callbacks []func()
	closed    bool

	profiling atomic.Bool
	printGPU  atomic.Bool

	profMu       sync.Mutex
	profile      []FrameProfileArea
	profileFrame uint64

	setupNanos atomic.Int64
	frames     atomic.Uint64

	// Render thread only.
	printSum    map[string]float64
	printOrder  []string
	printFrames int
	printSince  time.Time
}

func (f *frameRegistry) init() {
	f.printSum = make(map[string]float64)
}

// frameProfile collects the samples of one frame. A nil *frameProfile is
// valid and records nothing, which is what a frame started with profiling
// disabled gets.
type frameProfile struct {
	start time.Time
	areas []FrameProfileArea
}

// mark runs fn and, when profiling, records an area ending after fn.
func (p *frameProfile) mark(name string, fn func()) {
	fn()
	if p == nil {
		return
	}
	ms := float64(time.Since(p.start).Nanoseconds()) / 1e6
	p.areas = append(p.areas, FrameProfileArea{Name: name, CPUMsec: ms})
}

func (f *frameRegistry) add(fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrServerStopped
	}
	f.callbacks = append(f.callbacks, fn)
	return nil
}

// close discards pending callbacks and rejects new ones.
func (f *frameRegistry) close() {
	f.mu.Lock()
	n := len(f.callbacks)
	f.callbacks = nil
	f.closed = true
	f.mu.Unlock()
	if n > 0 {
		slogger().Debug("renderserver: discarded frame callbacks", "count", n)
	}
}

// fireCallbacks invokes the callbacks registered before this point, in
// registration order. Callbacks registered while firing wait for the next
// frame.
func (f *frameRegistry) fireCallbacks() {
	f.mu.Lock()
	cbs := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for i, cb := range cbs {
		f.invoke(i, cb)
	}
}

func (f *frameRegistry) invoke(i int, cb func()) {
	defer func() {
		if r := recover(); r != nil {
			slogger().Warn("renderserver: frame callback panicked", "index", i, "panic", r)
		}
	}()
	cb()
}

// beginFrame samples the profiling flag for the whole frame.
func (f *frameRegistry) beginFrame() *frameProfile {
	if !f.profiling.Load() && !f.printGPU.Load() {
		return nil
	}
	return &frameProfile{start: time.Now()}
}

// endFrame publishes the frame's samples and counts the frame.
func (f *frameRegistry) endFrame(p *frameProfile) {
	frame := f.frames.Add(1)
	if p == nil {
		return
	}

	f.profMu.Lock()
	f.profile = p.areas
	f.profileFrame = frame
	f.profMu.Unlock()

	if f.printGPU.Load() {
		f.accumulatePrint(p.areas)
	}
}

// accumulatePrint averages area times and logs them about once a second.
func (f *frameRegistry) accumulatePrint(areas []FrameProfileArea) {
	if f.printSince.IsZero() {
		f.printSince = time.Now()
	}
	prev := 0.0
	for _, a := range areas {
		if _, ok := f.printSum[a.Name]; !ok {
			f.printOrder = append(f.printOrder, a.Name)
		}
		f.printSum[a.Name] += a.CPUMsec - prev
		prev = a.CPUMsec
	}
	f.printFrames++

	if time.Since(f.printSince) < time.Second {
		return
	}
	attrs := make([]any, 0, 2*len(f.printOrder)+2)
	attrs = append(attrs, "frames", f.printFrames)
	for _, name := range f.printOrder {
		attrs = append(attrs, name, fmt.Sprintf("%.3fms", f.printSum[name]/float64(f.printFrames)))
	}
	slogger().Info("renderserver: frame profile", attrs...)

	clear(f.printSum)
	f.printOrder = f.printOrder[:0]
	f.printFrames = 0
	f.printSince = time.Now()
}

func (f *frameRegistry) setFrameSetupTime(d time.Duration) {
	f.setupNanos.Store(d.Nanoseconds())
}

// RequestFrameDrawnCallback registers fn to run once on the render thread
// after the next frame is drawn. Callbacks run in registration order. It
// returns ErrServerStopped once Finish has begun; callbacks still pending at
// that point never run.
func (s *Server) RequestFrameDrawnCallback(fn func()) error {
	if fn == nil {
		return nil
	}
	if s.State() >= StateExiting {
		return ErrServerStopped
	}
	return s.frame.add(fn)
}

// SetFrameProfilingEnabled toggles frame profiling. The setting is read once
// at the start of each frame, so a frame in flight is unaffected.
func (s *Server) SetFrameProfilingEnabled(enabled bool) {
	s.frame.profiling.Store(enabled)
}

// FrameProfile returns the samples of the last profiled frame.
func (s *Server) FrameProfile() []FrameProfileArea {
	s.frame.profMu.Lock()
	defer s.frame.profMu.Unlock()
	return append([]FrameProfileArea(nil), s.frame.profile...)
}

// FrameProfileFrame returns the number of the frame FrameProfile describes,
// counting drawn frames from 1. Zero means no frame was profiled.
func (s *Server) FrameProfileFrame() uint64 {
	s.frame.profMu.Lock()
	defer s.frame.profMu.Unlock()
	return s.frame.profileFrame
}

// FramesDrawn returns the number of frames drawn so far.
func (s *Server) FramesDrawn() uint64 { return s.frame.frames.Load() }

// SetPrintGPUProfile periodically logs average per-area frame times.
func (s *Server) SetPrintGPUProfile(enabled bool) {
	s.frame.printGPU.Store(enabled)
}

// FrameSetupTimeCPU returns the milliseconds the last frame spent flushing
// commands before drawing.
func (s *Server) FrameSetupTimeCPU() float64 {
	return float64(s.frame.setupNanos.Load()) / 1e6
}
