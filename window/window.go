// Package window wraps SDL2 window management for Vulkan rendering.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v2"

	"github.com/wave-render/wave/render"
)

// Window is an SDL2 window configured for Vulkan presentation.
type Window struct {
	handle *sdl.Window
}

// New initializes SDL's video subsystem and opens a resizable
// Vulkan-capable window.
func New(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl video")
	}

	handle, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrapf(err, "create window %q", title)
	}

	return &Window{handle: handle}, nil
}

// ProcAddr returns the Vulkan loader entry point for driver creation.
func (w *Window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// InstanceExtensions lists the instance extensions the window system
// needs for surface creation.
func (w *Window) InstanceExtensions() []string {
	return w.handle.VulkanGetInstanceExtensions()
}

// CreateSurface creates a Vulkan surface backed by this window.
func (w *Window) CreateSurface(instance core1_0.Instance, surfaceExtension khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	surface, err := vkng_sdl2.CreateSurface(instance, surfaceExtension, w.handle)
	if err != nil {
		return khr_surface.Surface{}, errors.Wrap(err, "create window surface")
	}
	return surface, nil
}

// DrawableSize returns the window's drawable area in pixels, which may
// differ from the logical window size on high-DPI displays.
func (w *Window) DrawableSize() render.Extent {
	width, height := w.handle.VulkanGetDrawableSize()
	return render.Extent{Width: int(width), Height: int(height)}
}

// Minimized reports whether the window is currently minimized.
func (w *Window) Minimized() bool {
	return w.handle.GetFlags()&sdl.WINDOW_MINIMIZED != 0
}

// Destroy closes the window and shuts SDL down.
func (w *Window) Destroy() {
	if w.handle != nil {
		w.handle.Destroy()
		w.handle = nil
	}
	sdl.Quit()
}
