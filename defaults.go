package renderserver

import (
	"github.com/gogpu/renderserver/canvas"
	"github.com/gogpu/renderserver/compositor"
	"github.com/gogpu/renderserver/storage/material"
	"github.com/gogpu/renderserver/storage/texture"
	"github.com/gogpu/renderserver/utilities"
	"github.com/gogpu/renderserver/viewport"
)

// DefaultCollaborators returns the built-in CPU collaborators: image
// backed textures, WGSL materials compiled with naga, the canvas
// rasterizer, CPU viewports and a headless compositor.
func DefaultCollaborators() Collaborators {
	textures := texture.New()
	cv := canvas.New(textures)
	comp := compositor.New()
	return Collaborators{
		Textures:   textures,
		Materials:  material.New(),
		Canvas:     cv,
		Viewports:  viewport.New(textures, cv, comp, viewport.WithWorkers(0)),
		Utilities:  utilities.New(),
		Compositor: comp,
	}
}

// NewDefault creates a server over DefaultCollaborators.
func NewDefault(cfg Config, opts ...Option) (*Server, error) {
	return New(cfg, DefaultCollaborators(), opts...)
}
