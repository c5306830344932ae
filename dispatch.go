package renderserver

import (
	"fmt"
	"image"

	"github.com/jinzhu/copier"
	"golang.org/x/image/draw"

	"github.com/gogpu/renderserver/internal/cmdqueue"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

// routed is what write needs to know about the target of an operation.
type routed interface {
	Name() string
	CanCreateResourcesAsync() bool
}

// renderOnly names a target whose operations always run on the render
// thread.
type renderOnly string

func (r renderOnly) Name() string                { return string(r) }
func (renderOnly) CanCreateResourcesAsync() bool { return false }

// write routes a mutating operation. It runs fn at once when the caller is
// the render thread or c can run operations from any goroutine, and queues
// it otherwise. After shutdown has begun the operation is dropped and the
// drop is logged.
func (s *Server) write(c routed, op string, fn func()) {
	if s.rejecting() {
		slogger().Warn("renderserver: operation dropped", "target", c.Name(), "op", op, "err", ErrServerStopped)
		return
	}
	s.markChanged(op)

	if s.onRenderThread() || c.CanCreateResourcesAsync() {
		fn()
		return
	}
	if err := s.queue.Push(cmdqueue.Command{Target: c.Name(), Op: op, Run: fn}); err != nil {
		slogger().Warn("renderserver: operation dropped", "target", c.Name(), "op", op, "err", err)
	}
}

// query runs an operation with a result on the caller. Queries are never
// queued.
func query[R any](s *Server, target, op string, fn func() R) R {
	if s.cfg.DebugSync && !s.onRenderThread() {
		slogger().Debug("renderserver: query off render thread", "target", target, "op", op)
	}
	return fn()
}

// create is two-phase creation: alloc runs now under allocMu and its RID is
// returned to the caller, while init is routed like any write. Operations
// issued on the RID afterwards queue behind init.
func (s *Server) create(c rendering.Collaborator, op string, alloc func() rid.RID, init func(rid.RID)) rid.RID {
	if s.rejecting() {
		slogger().Warn("renderserver: create rejected", "target", c.Name(), "op", op, "err", ErrServerStopped)
		return rid.Invalid
	}

	s.allocMu.Lock()
	r := alloc()
	if r.IsValid() {
		s.owners[r] = c
	}
	s.allocMu.Unlock()

	if !r.IsValid() {
		slogger().Warn("renderserver: allocation failed", "target", c.Name(), "op", op)
		return rid.Invalid
	}
	s.write(c, op, func() { init(r) })
	return r
}

// Free releases a RID created by this server. A RID is freed at most once:
// later calls return ErrInvalidRID and never reach the collaborator.
//
// On the render thread pending commands are flushed and the resource is
// freed before Free returns. Elsewhere the free is queued behind every
// earlier command.
func (s *Server) Free(r rid.RID) error {
	if s.rejecting() {
		return ErrServerStopped
	}

	s.allocMu.Lock()
	c, ok := s.owners[r]
	delete(s.owners, r)
	s.allocMu.Unlock()

	if !ok {
		slogger().Warn("renderserver: free of unknown RID", "rid", r)
		return fmt.Errorf("%w: %v", ErrInvalidRID, r)
	}
	s.markChanged("free")

	free := func() {
		if !c.Free(r) {
			slogger().Warn("renderserver: collaborator refused free", "target", c.Name(), "rid", r)
		}
	}
	if s.onRenderThread() {
		s.queue.FlushIfPending()
		free()
		return nil
	}
	if err := s.queue.Push(cmdqueue.Command{Target: c.Name(), Op: "free", Run: free}); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStopped, err)
	}
	return nil
}

// Owns reports whether r was created by this server and not yet freed.
func (s *Server) Owns(r rid.RID) bool {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()
	_, ok := s.owners[r]
	return ok
}

// snapshot returns a deep copy of v so that a queued command does not
// observe later changes the caller makes to its slice.
func snapshot[T any](v []T) []T {
	if len(v) == 0 {
		return nil
	}
	out := make([]T, 0, len(v))
	if err := copier.CopyWithOption(&out, v, copier.Option{DeepCopy: true}); err != nil || len(out) != len(v) {
		return append([]T(nil), v...)
	}
	return out
}

// snapshotImage copies img into a new image with its origin at zero.
// Single-channel images keep their type so the storage can pick a matching
// texture format; everything else becomes RGBA. A nil img stays nil.
func snapshotImage(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy())
	var dst draw.Image
	switch img.(type) {
	case *image.Gray:
		dst = image.NewGray(r)
	case *image.Alpha:
		dst = image.NewAlpha(r)
	default:
		dst = image.NewRGBA(r)
	}
	draw.Draw(dst, r, img, b.Min, draw.Src)
	return dst
}
