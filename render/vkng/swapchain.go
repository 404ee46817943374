package vkng

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"

	"github.com/wave-render/wave/render"
)

// swapchainState tracks a swapchain together with the image handles it
// owns, so destroying the chain retires its images from the table too.
type swapchainState struct {
	swapchain    khr_swapchain.Swapchain
	imageHandles []render.Handle
}

// QuerySwapchainSupport reports what the surface can do right now. It
// is queried fresh before every swapchain creation because the answer
// changes when the window is resized or moved between displays.
func (d *Device) QuerySwapchainSupport() (render.SwapchainSupport, error) {
	var support render.SwapchainSupport

	capabilities, _, err := d.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(d.surface, d.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "query surface capabilities")
	}

	support.Capabilities = render.SurfaceCapabilities{
		MinImageCount:  capabilities.MinImageCount,
		MaxImageCount:  capabilities.MaxImageCount,
		CurrentExtent:  fromCoreExtent(capabilities.CurrentExtent),
		MinImageExtent: fromCoreExtent(capabilities.MinImageExtent),
		MaxImageExtent: fromCoreExtent(capabilities.MaxImageExtent),
	}

	formats, _, err := d.surfaceExtension.GetPhysicalDeviceSurfaceFormats(d.surface, d.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "query surface formats")
	}
	for _, format := range formats {
		converted := fromCoreFormat(format.Format)
		if converted == render.FormatUndefined || format.ColorSpace != khr_surface.ColorSpaceSRGBNonlinear {
			continue
		}
		support.Formats = append(support.Formats, render.SurfaceFormat{
			Format:     converted,
			ColorSpace: render.ColorSpaceSRGBNonlinear,
		})
	}
	if len(support.Formats) == 0 {
		return support, errors.New("surface reports no usable formats")
	}

	presentModes, _, err := d.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(d.surface, d.physicalDevice)
	if err != nil {
		return support, errors.Wrap(err, "query surface present modes")
	}
	for _, mode := range presentModes {
		converted, known := fromCorePresentMode(mode)
		if known {
			support.PresentModes = append(support.PresentModes, converted)
		}
	}

	return support, nil
}

// CreateSwapchain builds a swapchain and returns handles for it and for
// the images the device actually granted.
func (d *Device) CreateSwapchain(info render.SwapchainInfo) (render.Handle, []render.Handle, error) {
	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if d.graphicsFamily != d.presentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, d.graphicsFamily, d.presentFamily)
	}

	surfaceFormat := khr_surface.SurfaceFormat{
		Format:     toCoreFormat(info.Format.Format),
		ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
	}

	capabilities, _, err := d.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(d.surface, d.physicalDevice)
	if err != nil {
		return render.Handle{}, nil, errors.Wrap(err, "query surface capabilities")
	}

	swapchain, _, err := d.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: d.surface,

		MinImageCount:    info.MinImageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      toCoreExtent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    toCorePresentMode(info.PresentMode),
		Clipped:        true,
	})
	if err != nil {
		return render.Handle{}, nil, errors.Wrap(err, "create swapchain")
	}

	images, _, err := d.swapchainExtension.GetSwapchainImages(swapchain)
	if err != nil {
		d.swapchainExtension.DestroySwapchain(swapchain, nil)
		return render.Handle{}, nil, errors.Wrap(err, "get swapchain images")
	}

	state := &swapchainState{swapchain: swapchain}
	for _, image := range images {
		state.imageHandles = append(state.imageHandles, d.images.Insert(image))
	}

	return d.swapchains.Insert(state), state.imageHandles, nil
}

// DestroySwapchain destroys the swapchain and retires its image
// handles. Image views must already be gone.
func (d *Device) DestroySwapchain(swapchain render.Handle) {
	state, ok := d.swapchains.Remove(swapchain)
	if !ok {
		return
	}

	for _, image := range state.imageHandles {
		d.images.Remove(image)
	}
	d.swapchainExtension.DestroySwapchain(state.swapchain, nil)
}

// AcquireNextImage asks the presentation engine for the next image,
// signalling the given semaphore when the image is ready to render to.
func (d *Device) AcquireNextImage(swapchain render.Handle, signal render.Handle, timeout time.Duration) (int, render.AcquireResult, error) {
	state, ok := d.swapchains.Get(swapchain)
	if !ok {
		return 0, render.AcquireSuccess, errors.New("acquire on dead swapchain handle")
	}
	semaphore, ok := d.semaphores.Get(signal)
	if !ok {
		return 0, render.AcquireSuccess, errors.New("acquire with dead semaphore handle")
	}

	imageIndex, res, err := d.swapchainExtension.AcquireNextImage(state.swapchain, timeout, &semaphore, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, render.AcquireOutOfDate, nil
	}
	if err != nil {
		return 0, render.AcquireSuccess, errors.Wrap(err, "acquire next image")
	}
	if res == khr_swapchain.VKSuboptimal {
		return imageIndex, render.AcquireSuboptimal, nil
	}

	return imageIndex, render.AcquireSuccess, nil
}

// Present queues the image for presentation after the wait semaphore
// signals.
func (d *Device) Present(swapchain render.Handle, imageIndex int, wait render.Handle) (render.AcquireResult, error) {
	state, ok := d.swapchains.Get(swapchain)
	if !ok {
		return render.AcquireSuccess, errors.New("present on dead swapchain handle")
	}
	semaphore, ok := d.semaphores.Get(wait)
	if !ok {
		return render.AcquireSuccess, errors.New("present with dead semaphore handle")
	}

	res, err := d.swapchainExtension.QueuePresent(d.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{semaphore},
		Swapchains:     []khr_swapchain.Swapchain{state.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate {
		return render.AcquireOutOfDate, nil
	}
	if err != nil {
		return render.AcquireSuccess, errors.Wrap(err, "queue present")
	}
	if res == khr_swapchain.VKSuboptimal {
		return render.AcquireSuboptimal, nil
	}

	return render.AcquireSuccess, nil
}
