// Command rsdemo drives the rendering server headlessly and saves the
// composed main screen as a PNG.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/renderserver"
	"github.com/gogpu/renderserver/compositor"
	"github.com/gogpu/renderserver/geom"
	"github.com/gogpu/renderserver/rendering"
	"github.com/gogpu/renderserver/rid"
)

func main() {
	var (
		width   = flag.Int("width", 800, "screen width")
		height  = flag.Int("height", 600, "screen height")
		output  = flag.String("output", "rsdemo.png", "output file")
		config  = flag.String("config", "", "TOML configuration file")
		frames  = flag.Int("frames", 30, "frames to draw")
		thread  = flag.Bool("thread", true, "render on a dedicated thread (overrides the config)")
		profile = flag.Bool("profile", false, "log per-area frame times")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		renderserver.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := renderserver.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = renderserver.LoadConfig(*config); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	collabs := renderserver.DefaultCollaborators()
	comp := collabs.Compositor.(*compositor.Compositor)
	comp.SetScreenSize(rendering.MainWindowID, *width, *height)

	var opts []renderserver.Option
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "thread" {
			opts = append(opts, renderserver.WithThread(*thread))
		}
	})
	srv, err := renderserver.New(cfg, collabs, opts...)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.Init(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	defer func() {
		if err := srv.Finish(); err != nil {
			log.Printf("Finish: %v", err)
		}
	}()
	log.Printf("Adapter: %s (%s)", srv.VideoAdapterName(), srv.VideoAdapterAPIVersion())

	vp := srv.ViewportCreate()
	srv.ViewportSetSize(vp, *width, *height)
	srv.ViewportAttachToScreen(vp, geom.Rect2{}, rendering.MainWindowID)
	srv.ViewportSetClearColor(vp, rendering.RGBA(0.1, 0.12, 0.2, 1))

	cv := srv.CanvasCreate()
	srv.ViewportAttachCanvas(vp, cv)

	spinner := buildScene(srv, cv, float32(*width), float32(*height))

	srv.SetFrameProfilingEnabled(*profile)
	srv.SetPrintGPUProfile(*profile)
	for i := range *frames {
		angle := float32(i) * 2 * math.Pi / float32(max(*frames, 1))
		xform := geom.Translation(geom.V2(float32(*width)*0.75, float32(*height)*0.5)).
			Mul(geom.Rotation(angle))
		srv.CanvasItemSetTransform(spinner, xform)
		srv.Draw(true, 1.0/60)
	}

	done := make(chan struct{})
	if err := srv.RequestFrameDrawnCallback(func() { close(done) }); err != nil {
		log.Fatalf("Failed to request callback: %v", err)
	}
	srv.Draw(true, 1.0/60)
	<-done
	srv.Sync()

	if err := savePNG(*output, comp.Screen(rendering.MainWindowID)); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Drew %d frames, saved %s (%dx%d), %d objects in last frame",
		srv.FramesDrawn(), *output, *width, *height,
		srv.RenderingInfo(rendering.RenderingInfoTotalObjectsInFrame))
	if *profile {
		for _, a := range srv.FrameProfile() {
			log.Printf("  %-16s %.3fms", a.Name, a.CPUMsec)
		}
	}
}

// buildScene fills the canvas and returns the item rotated every frame.
func buildScene(srv *renderserver.Server, cv rid.RID, w, h float32) rid.RID {
	bg := srv.CanvasItemCreate()
	srv.CanvasItemSetParent(bg, cv)
	for i := range 10 {
		t := float64(i) / 10
		srv.CanvasItemAddRect(bg, geom.R2(0, h*float32(t), w, h/10+1), rendering.RGBA(0.1+t*0.3, 0.15+t*0.2, 0.3+t*0.2, 1))
	}

	shapes := srv.CanvasItemCreate()
	srv.CanvasItemSetParent(shapes, cv)
	srv.CanvasItemSetZIndex(shapes, 1)
	srv.CanvasItemAddCircle(shapes, geom.V2(150, 150), 60, rendering.RGBA(1, 0.3, 0.3, 0.8))
	srv.CanvasItemAddCircle(shapes, geom.V2(200, 150), 60, rendering.RGBA(0.3, 1, 0.3, 0.8))
	srv.CanvasItemAddCircle(shapes, geom.V2(175, 200), 60, rendering.RGBA(0.3, 0.3, 1, 0.8))
	srv.CanvasItemAddPolygon(shapes, []geom.Vector2{
		geom.V2(100, h-100), geom.V2(250, h-250), geom.V2(400, h-100),
	}, []rendering.Color{rendering.RGBA(1, 0.8, 0, 1)}, nil, rid.Invalid)
	srv.CanvasItemAddPolyline(shapes, []geom.Vector2{
		geom.V2(50, h-50), geom.V2(w/2, h-80), geom.V2(w-50, h-50),
	}, []rendering.Color{rendering.White}, 4, false)

	checker := srv.Texture2DCreate(checkerboard(64, 8))
	spinner := srv.CanvasItemCreate()
	srv.CanvasItemSetParent(spinner, cv)
	srv.CanvasItemSetZIndex(spinner, 2)
	srv.CanvasItemAddTextureRect(spinner, geom.R2(-64, -64, 128, 128), checker, false, rendering.White, false)
	srv.CanvasItemAddLine(spinner, geom.V2(-90, 0), geom.V2(90, 0), rendering.RGBA(1, 1, 1, 0.9), 3, false)
	return spinner
}

func checkerboard(size, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			v := uint8(60)
			if (x/cell+y/cell)%2 == 0 {
				v = 220
			}
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, 255, 255
		}
	}
	return img
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
