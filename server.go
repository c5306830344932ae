package renderserver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/gogpu/renderserver/internal/cmdqueue"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

// State is the life cycle state of a Server.
type State int32

// Server states, in order.
const (
	StateNotStarted State = iota
	StateRunning
	StateExiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateExiting:
		return "exiting"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Collaborators are the subsystems a Server routes operations to. All of
// them are required.
type Collaborators struct {
	Textures   rendering.TextureStorage
	Materials  rendering.MaterialStorage
	Viewports  rendering.ViewportManager
	Canvas     rendering.CanvasCuller
	Utilities  rendering.Utilities
	Compositor rendering.Compositor
}

func (c Collaborators) validate() error {
	missing := ""
	switch {
	case c.Textures == nil:
		missing = "Textures"
	case c.Materials == nil:
		missing = "Materials"
	case c.Viewports == nil:
		missing = "Viewports"
	case c.Canvas == nil:
		missing = "Canvas"
	case c.Utilities == nil:
		missing = "Utilities"
	case c.Compositor == nil:
		missing = "Compositor"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s", ErrNilCollaborator, missing)
	}
	return nil
}

// all returns the collaborators in initialization order.
func (c Collaborators) all() []any {
	return []any{c.Utilities, c.Textures, c.Materials, c.Canvas, c.Viewports, c.Compositor}
}

// shaderReloader is implemented by material storages that watch shader
// files and report new source code.
type shaderReloader interface {
	SetReloadHandler(func(shader rid.RID, code string))
}

// Server is the rendering server facade. Every operation may be called from
// any goroutine; mutating operations are routed to the render thread and
// queries run on the caller.
//
// A Server is created with New, started with Init, driven with Draw and
// stopped with Finish.
type Server struct {
	cfg     Config
	collabs Collaborators
	queue   *cmdqueue.Queue

	state    atomic.Int32
	renderID atomic.Int64
	exit     atomic.Bool
	done     chan struct{}

	finishOnce sync.Once
	finishErr  error

	// allocMu guards RID allocation and the ownership index.
	allocMu sync.Mutex
	owners  map[rid.RID]rendering.Collaborator

	changes atomic.Uint64
	frame   frameRegistry
}

// New creates a stopped server routing to collabs. Options are applied on
// top of cfg.
func New(cfg Config, collabs Collaborators, opts ...Option) (*Server, error) {
	if err := collabs.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.clone()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		cfg:     cfg,
		collabs: collabs,
		owners:  make(map[rid.RID]rendering.Collaborator),
		done:    make(chan struct{}),
	}
	s.renderID.Store(-1)
	s.queue = cmdqueue.New(s.onRenderThread)
	s.frame.init()

	if r, ok := collabs.Materials.(shaderReloader); ok {
		r.SetReloadHandler(func(shader rid.RID, code string) {
			s.ShaderSetCode(shader, code)
		})
	}
	register(s)
	return s, nil
}

// Config returns the configuration the server was created with.
func (s *Server) Config() Config { return s.cfg.clone() }

// State returns the current life cycle state.
func (s *Server) State() State { return State(s.state.Load()) }

// Threaded reports whether the server renders on its own goroutine.
func (s *Server) Threaded() bool { return s.cfg.UseThread }

// onRenderThread reports whether the caller is the render thread. In
// single-threaded mode every caller is. Goroutine ids start at 1, so an
// unset or zero id never matches.
func (s *Server) onRenderThread() bool {
	if !s.cfg.UseThread {
		return true
	}
	id := s.renderID.Load()
	return id > 0 && goid.Get() == id
}

// OnRenderThread reports whether the calling goroutine is the render thread.
func (s *Server) OnRenderThread() bool { return s.onRenderThread() }

// rejecting reports whether a command from the caller must be refused
// because shutdown has begun. The render thread keeps running commands
// while it drains during shutdown.
func (s *Server) rejecting() bool {
	switch s.State() {
	case StateStopped:
		return true
	case StateExiting:
		return !s.onRenderThread()
	}
	return false
}

// HasChanged reports whether any mutating operation ran since the previous
// call.
func (s *Server) HasChanged() bool {
	return s.changes.Swap(0) > 0
}

func (s *Server) markChanged(op string) {
	n := s.changes.Add(1)
	if s.cfg.DebugChanges {
		slogger().Debug("renderserver: changed", "op", op, "pending", n)
	}
}

// QueueStats are the command queue counters.
type QueueStats = cmdqueue.Stats

// QueueStats returns the command queue counters.
func (s *Server) QueueStats() QueueStats { return s.queue.Stats() }

// PendingCommands returns the number of queued commands.
func (s *Server) PendingCommands() int { return s.queue.Len() }
