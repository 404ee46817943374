package render

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Swapchain owns the presentable image chain: the images, their views,
// the negotiated surface format, present mode, and extent. It is
// created at startup and fully torn down and rebuilt on every resize or
// out-of-date event; dependents (attachments, framebuffers) must be
// rebuilt with it.
type Swapchain struct {
	device      Device
	handle      Handle
	images      []Handle
	views       []Handle
	format      SurfaceFormat
	presentMode PresentMode
	extent      Extent
}

// selection is the outcome of negotiating with the surface: everything
// swap-chain creation needs, fixed before any resource is built.
type selection struct {
	format      SurfaceFormat
	presentMode PresentMode
	extent      Extent
	imageCount  int
}

// negotiate picks a surface format, present mode, extent, and image
// count from what the surface supports. The image count prefers one
// more than the minimum so acquisition does not stall on the driver,
// clamped to the surface maximum when one exists.
func negotiate(support SwapchainSupport, drawable Extent) selection {
	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	return selection{
		format:      chooseSurfaceFormat(support.Formats),
		presentMode: choosePresentMode(support.PresentModes),
		extent:      chooseExtent(support.Capabilities, drawable),
		imageCount:  imageCount,
	}
}

func chooseSurfaceFormat(available []SurfaceFormat) SurfaceFormat {
	for _, format := range available {
		if format.Format == FormatB8G8R8A8SRGB && format.ColorSpace == ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return available[0]
}

func choosePresentMode(available []PresentMode) PresentMode {
	for _, presentMode := range available {
		if presentMode == PresentModeMailbox {
			return presentMode
		}
	}

	return PresentModeFIFO
}

func chooseExtent(capabilities SurfaceCapabilities, drawable Extent) Extent {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	extent := drawable
	if extent.Width < capabilities.MinImageExtent.Width {
		extent.Width = capabilities.MinImageExtent.Width
	}
	if extent.Width > capabilities.MaxImageExtent.Width {
		extent.Width = capabilities.MaxImageExtent.Width
	}
	if extent.Height < capabilities.MinImageExtent.Height {
		extent.Height = capabilities.MinImageExtent.Height
	}
	if extent.Height > capabilities.MaxImageExtent.Height {
		extent.Height = capabilities.MaxImageExtent.Height
	}

	return extent
}

// NewSwapchain negotiates with the surface and builds the image chain.
func NewSwapchain(device Device, drawable Extent) (*Swapchain, error) {
	support, err := device.QuerySwapchainSupport()
	if err != nil {
		return nil, errors.Wrap(err, "query swapchain support")
	}

	sc := &Swapchain{device: device}
	if err := sc.create(negotiate(support, drawable)); err != nil {
		return nil, err
	}

	return sc, nil
}

func (sc *Swapchain) create(sel selection) error {
	handle, images, err := sc.device.CreateSwapchain(SwapchainInfo{
		MinImageCount: sel.imageCount,
		Format:        sel.format,
		Extent:        sel.extent,
		PresentMode:   sel.presentMode,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	views := make([]Handle, 0, len(images))
	for i, image := range images {
		view, err := sc.device.CreateImageView(image, sel.format.Format, UsageColor)
		if err != nil {
			for _, v := range views {
				sc.device.DestroyImageView(v)
			}
			sc.device.DestroySwapchain(handle)
			return errors.Wrapf(err, "create swapchain image view %d", i)
		}
		views = append(views, view)
	}

	sc.handle = handle
	sc.images = images
	sc.views = views
	sc.format = sel.format
	sc.presentMode = sel.presentMode
	sc.extent = sel.extent
	return nil
}

// Recreate tears the chain down and rebuilds it for the given drawable
// size. The caller is responsible for the device-idle barrier and for
// rebuilding dependents.
func (sc *Swapchain) Recreate(drawable Extent) error {
	support, err := sc.device.QuerySwapchainSupport()
	if err != nil {
		return errors.Wrap(err, "query swapchain support")
	}

	return sc.recreateWith(negotiate(support, drawable))
}

func (sc *Swapchain) recreateWith(sel selection) error {
	sc.Destroy()
	return sc.create(sel)
}

// Destroy releases the views and the chain. Old handles never outlive
// their replacement.
func (sc *Swapchain) Destroy() {
	for _, view := range sc.views {
		sc.device.DestroyImageView(view)
	}
	sc.views = nil
	sc.images = nil

	if !sc.handle.IsZero() {
		sc.device.DestroySwapchain(sc.handle)
		sc.handle = Handle{}
	}
}

// AcquireNextImage requests the next presentable image, signalling the
// given semaphore when it is ready. An OutOfDate result is a trigger
// for full recreation, not an error.
func (sc *Swapchain) AcquireNextImage(signal Handle, timeout time.Duration) (int, AcquireResult, error) {
	return sc.device.AcquireNextImage(sc.handle, signal, timeout)
}

func (sc *Swapchain) ImageCount() int {
	return len(sc.images)
}

func (sc *Swapchain) ImageView(i int) Handle {
	return sc.views[i]
}

func (sc *Swapchain) Extent() Extent {
	return sc.extent
}

func (sc *Swapchain) Format() SurfaceFormat {
	return sc.format
}

func (sc *Swapchain) Handle() Handle {
	return sc.handle
}
