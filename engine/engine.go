package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/wave-render/wave/camera"
	"github.com/wave-render/wave/geometry"
	"github.com/wave-render/wave/render"
	"github.com/wave-render/wave/render/vkng"
	"github.com/wave-render/wave/window"
)

// Config parameterizes engine creation. Zero fields fall back to
// defaults.
type Config struct {
	Title  string
	Width  int
	Height int

	// FPS is the fixed simulation update rate in steps per second, not
	// the presentation rate; presentation runs as fast as the swapchain
	// allows.
	FPS float64

	// Debug enables Vulkan validation.
	Debug bool
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = "wave"
	}
	if c.Width == 0 {
		c.Width = 800
	}
	if c.Height == 0 {
		c.Height = 600
	}
	if c.FPS == 0 {
		c.FPS = 60
	}
}

// Engine owns the window, the Vulkan backend, the scene, and the
// simulation clock, and drives the main loop.
type Engine struct {
	window   *window.Window
	device   *vkng.Device
	renderer *render.Renderer
	camera   *camera.Camera
	scene    *geometry.Scene
	time     *Time
}

// New opens the window and brings up the Vulkan device. The scene is
// attached separately with SetScene before Run.
func New(config Config) (*Engine, error) {
	config.applyDefaults()

	win, err := window.New(config.Title, config.Width, config.Height)
	if err != nil {
		return nil, err
	}

	device, err := vkng.New(vkng.Config{
		Window:  win,
		AppName: config.Title,
		Debug:   config.Debug,
	})
	if err != nil {
		win.Destroy()
		return nil, err
	}

	return &Engine{
		window: win,
		device: device,
		camera: camera.New(mgl32.Vec3{3, 2, 3}),
		time:   NewTime(config.FPS),
	}, nil
}

// Camera exposes the engine camera for configuration.
func (e *Engine) Camera() *camera.Camera {
	return e.camera
}

// Scene is the currently attached scene, nil before SetScene.
func (e *Engine) Scene() *geometry.Scene {
	return e.scene
}

// SetScene builds the scene's meshes and uploads them to the device.
func (e *Engine) SetScene(scene *geometry.Scene) error {
	if err := scene.Build(); err != nil {
		return err
	}
	if err := e.device.UploadScene(scene); err != nil {
		return err
	}
	e.scene = scene
	return nil
}

func (e *Engine) applyUniforms(imageIndex int, extent render.Extent) error {
	return e.device.UpdateUniforms(imageIndex, vkng.UniformBufferObject{
		Model: mgl32.Ident4(),
		View:  e.camera.View(),
		Proj:  e.camera.Projection(extent.Width, extent.Height),
	})
}

// Run builds the presentation stack and loops until the window is
// closed: pump events, advance the fixed-timestep simulation, draw. It
// must run on the main OS thread; callers lock it with
// runtime.LockOSThread before creating the engine.
func (e *Engine) Run() error {
	renderer, err := render.NewRenderer(e.device, render.RendererConfig{
		Drawable: e.window.DrawableSize(),
		Update:   e.applyUniforms,
	})
	if err != nil {
		return errors.Wrap(err, "build renderer")
	}
	e.renderer = renderer

	rendering := true

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch ev.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				case sdl.WINDOWEVENT_RESIZED:
					drawable := e.window.DrawableSize()
					if drawable.Width > 0 && drawable.Height > 0 {
						rendering = true
						if err := renderer.Recreate(drawable); err != nil {
							return err
						}
					} else {
						rendering = false
					}
				}
			}
		}

		e.time.Tick()
		e.time.Step(func(delta time.Duration) {
			e.camera.Rotate(float32(delta.Seconds()))
		})

		if rendering && !e.window.Minimized() {
			if err := renderer.DrawFrame(); err != nil {
				return err
			}
		}
	}

	err = renderer.Destroy()
	e.renderer = nil
	return err
}

// Destroy releases the device and window. Run must have returned.
func (e *Engine) Destroy() {
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
	}
	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}
}
