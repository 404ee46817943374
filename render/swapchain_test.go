package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseSurfaceFormatPrefersSRGB(t *testing.T) {
	formats := []SurfaceFormat{
		{Format: FormatB8G8R8A8UNorm, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	assert.Equal(t, FormatB8G8R8A8SRGB, chosen.Format)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []SurfaceFormat{
		{Format: FormatR8G8B8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatB8G8R8A8UNorm, ColorSpace: ColorSpaceSRGBNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	assert.Equal(t, FormatR8G8B8A8SRGB, chosen.Format)
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, PresentModeMailbox,
		choosePresentMode([]PresentMode{PresentModeFIFO, PresentModeMailbox}))
	assert.Equal(t, PresentModeFIFO,
		choosePresentMode([]PresentMode{PresentModeImmediate, PresentModeFIFO}))
	assert.Equal(t, PresentModeFIFO,
		choosePresentMode(nil))
}

func TestChooseExtent(t *testing.T) {
	capabilities := SurfaceCapabilities{
		CurrentExtent:  Extent{Width: -1, Height: -1},
		MinImageExtent: Extent{Width: 64, Height: 64},
		MaxImageExtent: Extent{Width: 2048, Height: 2048},
	}

	// Drawable within bounds passes through.
	assert.Equal(t, Extent{Width: 800, Height: 600},
		chooseExtent(capabilities, Extent{Width: 800, Height: 600}))

	// Clamped to min and max.
	assert.Equal(t, Extent{Width: 64, Height: 2048},
		chooseExtent(capabilities, Extent{Width: 10, Height: 9000}))

	// A fixed surface extent overrides the drawable size.
	capabilities.CurrentExtent = Extent{Width: 1280, Height: 720}
	assert.Equal(t, Extent{Width: 1280, Height: 720},
		chooseExtent(capabilities, Extent{Width: 800, Height: 600}))
}

func TestNegotiateImageCount(t *testing.T) {
	support := SwapchainSupport{
		Capabilities: SurfaceCapabilities{
			MinImageCount: 2,
			MaxImageCount: 8,
			CurrentExtent: Extent{Width: 800, Height: 600},
		},
		Formats:      []SurfaceFormat{{Format: FormatB8G8R8A8SRGB}},
		PresentModes: []PresentMode{PresentModeFIFO},
	}

	// One more than the minimum, to avoid stalling on the driver.
	assert.Equal(t, 3, negotiate(support, Extent{}).imageCount)

	// Clamped when the surface caps the count.
	support.Capabilities.MinImageCount = 4
	support.Capabilities.MaxImageCount = 4
	assert.Equal(t, 4, negotiate(support, Extent{}).imageCount)

	// Zero max means unbounded.
	support.Capabilities.MinImageCount = 5
	support.Capabilities.MaxImageCount = 0
	assert.Equal(t, 6, negotiate(support, Extent{}).imageCount)
}

func TestSwapchainCreateAndRecreate(t *testing.T) {
	device := newMockDevice(t)

	sc, err := NewSwapchain(device, Extent{Width: 800, Height: 600})
	require.NoError(t, err)

	assert.Equal(t, 3, sc.ImageCount(), "min 2 + 1")
	assert.Equal(t, FormatB8G8R8A8SRGB, sc.Format().Format)
	assert.Equal(t, Extent{Width: 800, Height: 600}, sc.Extent())

	oldHandle := sc.Handle()
	oldViews := append([]Handle(nil), sc.views...)

	device.support.Capabilities.CurrentExtent = Extent{Width: 400, Height: 300}
	require.NoError(t, sc.Recreate(Extent{Width: 400, Height: 300}))

	assert.Equal(t, Extent{Width: 400, Height: 300}, sc.Extent())
	assert.False(t, device.live(oldHandle), "old swapchain must be released")
	for _, view := range oldViews {
		assert.False(t, device.live(view), "old image views must be released")
	}
	assert.NotEqual(t, oldHandle, sc.Handle())

	sc.Destroy()
	assert.Equal(t, 0, device.objects.Len(), "destroy must release everything")
}
