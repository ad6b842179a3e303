/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"goarrg.com/asset"
	"goarrg.com/debug"
	"goarrg.com/gmath"

	"goarrg.com/nova"
	"goarrg.com/nova/assets"
	"goarrg.com/nova/backend"
	"goarrg.com/nova/engine"
	"goarrg.com/nova/window"
)

var flags flag.FlagSet

var maxTextureSize = gmath.Extent2i32{X: 4096, Y: 4096}

var (
	logger         = debug.NewLogger("nova", "cmd")
	rendererLogger = debug.NewLogger("nova", "renderer")
)

func setLogLevel(l uint32) {
	debug.SetLevel(l)
	nova.SetLogLevel(l)
	logger.SetLevel(l)
	rendererLogger.SetLevel(l)
}

func init() {
	// glfw must only be used from the main thread.
	runtime.LockOSThread()
}

type extent gmath.Extent2i32

func (e *extent) UnmarshalText(data []byte) error {
	w, h, ok := strings.Cut(string(data), "x")
	if !ok {
		return debug.Errorf("Size not in the format \"WxH\"")
	}
	width, err := strconv.ParseInt(w, 10, 32)
	if err != nil {
		return debug.ErrorWrapf(err, "Invalid width")
	}
	height, err := strconv.ParseInt(h, 10, 32)
	if err != nil {
		return debug.ErrorWrapf(err, "Invalid height")
	}
	if width < 1 || height < 1 {
		return debug.Errorf("Size must be at least 1x1")
	}
	*e = extent{X: int32(width), Y: int32(height)}
	return nil
}

func (e extent) MarshalText() (text []byte, err error) {
	return fmt.Appendf(nil, "%dx%d", e.X, e.Y), nil
}

type color [4]float32

func (c *color) UnmarshalText(data []byte) error {
	parts := strings.Split(string(data), ",")
	if len(parts) != 4 {
		return debug.Errorf("Color not in the format \"r,g,b,a\"")
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return debug.ErrorWrapf(err, "Invalid color component %d", i)
		}
		if !gmath.InRange(v, 0, 1) {
			return debug.Errorf("Color component %d must be in range [0, 1]", i)
		}
		(*c)[i] = float32(v)
	}
	return nil
}

func (c color) MarshalText() (text []byte, err error) {
	return fmt.Appendf(nil, "%g,%g,%g,%g", c[0], c[1], c[2], c[3]), nil
}

func main() {
	setLogLevel(debug.LogLevelWarn)

	defaults := nova.DefaultConfig()

	flags.Usage = help
	flags.Init("", flag.ExitOnError)

	v := flags.Bool("v", false, "Verbose - Print high level tasks")
	vv := flags.Bool("vv", false, "Very Verbose - Print everything")
	validation := flags.Bool("validation", false, "Enables the backend's validation layers.")

	fps := flags.Float64("fps", defaults.FrameRate, "Sets the renderer's frame rate.")
	framesInFlight := flags.Int("frames-in-flight", int(defaults.MaxFramesInFlight), "Sets how many frames the renderer records ahead of the GPU.")
	acquireAttempts := flags.Int("acquire-attempts", int(defaults.MaxAcquireAttempts),
		"Sets how many times an out of date swapchain is recreated before a frame fails.")

	dir := flags.String("assets", ".", "Sets the directory <image> is resolved against.")
	imageName := flags.String("image", "", "Image to draw, a checkerboard is drawn when empty.\n"+
		"PNG, JPEG, GIF, BMP and WebP are supported.")

	size := extent{}
	flags.TextVar(&size, "size", extent{X: 1280, Y: 720}, "Sets the initial window size in the format \"WxH\".")
	tint := color{}
	flags.TextVar(&tint, "tint", color{1, 1, 1, 1}, "Multiplies the image by a color in the format \"r,g,b,a\".")

	if err := flags.Parse(os.Args[1:]); err != nil {
		panic(err)
	}

	if *v {
		setLogLevel(debug.LogLevelInfo)
	} else if *vv {
		setLogLevel(debug.LogLevelVerbose)
	}

	config := defaults
	config.ApplicationName = "nova"
	config.Validation = *validation
	config.FrameRate = *fps
	config.MaxFramesInFlight = int32(*framesInFlight)
	config.MaxAcquireAttempts = int32(*acquireAttempts)

	opts := nova.RendererOptions{Tint: [4]float32(tint)}
	if *imageName != "" {
		img, err := assets.LoadImage(asset.DirFS(*dir), *imageName, maxTextureSize)
		if err != nil {
			logger.EPrintf("%v", err)
			os.Exit(1)
		}
		opts.TextureSize = img.Size
		opts.TexturePixels = img.Pixels
	}

	if err := run(gmath.Extent2i32(size), config, opts); err != nil {
		logger.EPrintf("%v", err)
		os.Exit(1)
	}
}

func run(size gmath.Extent2i32, config nova.Config, opts nova.RendererOptions) error {
	win, err := window.New(config.ApplicationName, size)
	if err != nil {
		return err
	}
	defer win.Destroy()

	ctx, err := nova.NewContext(backend.Default(), win, config)
	if err != nil {
		return err
	}
	defer ctx.Release()

	loader, err := nova.NewLoader(ctx)
	if err != nil {
		return err
	}
	defer loader.Close()

	renderer, err := nova.StartRenderer(ctx, win, loader, rendererLogger, opts)
	if err != nil {
		return err
	}

	e := engine.New()
	e.AddSystem(engine.ClockTimeUpdated, "frame-stats", frameStats(renderer))
	e.AddSystem(engine.TickEnding, "renderer-health", engine.SystemFunc(func(context.Context, engine.Clock) error {
		select {
		case <-renderer.Done():
			if err := renderer.ShutDown(); err != nil {
				return err
			}
			return debug.Errorf("Renderer stopped")
		default:
			return nil
		}
	}))
	logger.VPrintf("Systems: %s", mustJSON(e))

	closing := false
	// Window events are polled by the until callback as it runs on the main thread.
	until := func() bool {
		for _, ev := range win.PollEvents() {
			switch ev := ev.(type) {
			case window.EventResized:
				renderer.ResizeSurface(ev.Size)
			case window.EventCloseRequested:
				closing = true
			}
		}
		return closing || win.ShouldClose()
	}

	runErr := e.Run(context.Background(), config.FrameRate, until)
	if err := renderer.ShutDown(); err != nil && runErr == nil {
		runErr = err
	}
	logger.IPrintf("Presented %d frames", renderer.FrameCount())
	return runErr
}

func frameStats(renderer *nova.Renderer) engine.System {
	var (
		last   time.Duration
		frames int64
	)
	return engine.SystemFunc(func(_ context.Context, clock engine.Clock) error {
		if clock.Total-last < time.Second {
			return nil
		}
		n := renderer.FrameCount()
		logger.VPrintf("%.1f fps", float64(n-frames)/(clock.Total-last).Seconds())
		last, frames = clock.Total, n
		return nil
	})
}

func mustJSON(e *engine.Engine) string {
	data, err := e.MarshalJSON()
	if err != nil {
		panic(err)
	}
	return string(data)
}

func help() {
	fmt.Fprintf(os.Stderr, "nova opens a window and draws an image with the nova renderer.\n"+
		"\nThe image is uploaded by the background loader and drawn as a textured quad every frame,\n"+
		"resizing the window recreates the swapchain.\n"+
		"\n")
	args := ""
	flags.VisitAll(func(f *flag.Flag) {
		n, u := flag.UnquoteUsage(f)
		if f.DefValue != "" {
			u += "\n\nDefaults to \"" + f.DefValue + "\"."
		}
		args += "\t-" + f.Name + " " + n + "\n\t\t" + strings.ReplaceAll(strings.TrimSpace(u), "\n", "\n\t\t") + "\n"
	})
	fmt.Fprintf(os.Stderr, "Usage:\n\t%s [arguments]\n\nArguments:\n%s", filepath.Base(os.Args[0]), args)
}
