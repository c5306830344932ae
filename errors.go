package renderserver

import "errors"

var (
	// ErrServerStopped is returned (or logged) for operations issued after
	// Finish has begun.
	ErrServerStopped = errors.New("renderserver: server stopped")

	// ErrInvalidRID is returned by Free for a RID the server did not create
	// or has already freed.
	ErrInvalidRID = errors.New("renderserver: invalid RID")

	// ErrAlreadyStarted is returned by a second Init.
	ErrAlreadyStarted = errors.New("renderserver: already started")

	// ErrNotStarted is logged when a frame, sync or flush is requested
	// before Init.
	ErrNotStarted = errors.New("renderserver: not started")

	// ErrNilCollaborator is returned by New when a required collaborator is
	// missing.
	ErrNilCollaborator = errors.New("renderserver: nil collaborator")

	// ErrNoRenderThreadID is returned by Init when the render goroutine
	// cannot be told apart from other goroutines.
	ErrNoRenderThreadID = errors.New("renderserver: no goroutine id for the render thread")

	// ErrOnRenderThread is returned by Finish when called from the render
	// thread, which cannot wait for itself.
	ErrOnRenderThread = errors.New("renderserver: called on the render thread")
)
