package vkng

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"

	"github.com/wave-render/wave/render"
)

func toCoreFormat(format render.Format) core1_0.Format {
	switch format {
	case render.FormatB8G8R8A8SRGB:
		return core1_0.FormatB8G8R8A8SRGB
	case render.FormatR8G8B8A8SRGB:
		return core1_0.FormatR8G8B8A8SRGB
	case render.FormatB8G8R8A8UNorm:
		return core1_0.FormatB8G8R8A8UnsignedNormalized
	case render.FormatD32SignedFloat:
		return core1_0.FormatD32SignedFloat
	case render.FormatD32SignedFloatS8:
		return core1_0.FormatD32SignedFloatS8UnsignedInt
	case render.FormatD24UNormS8:
		return core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
	}
	return core1_0.FormatUndefined
}

func fromCoreFormat(format core1_0.Format) render.Format {
	switch format {
	case core1_0.FormatB8G8R8A8SRGB:
		return render.FormatB8G8R8A8SRGB
	case core1_0.FormatR8G8B8A8SRGB:
		return render.FormatR8G8B8A8SRGB
	case core1_0.FormatB8G8R8A8UnsignedNormalized:
		return render.FormatB8G8R8A8UNorm
	case core1_0.FormatD32SignedFloat:
		return render.FormatD32SignedFloat
	case core1_0.FormatD32SignedFloatS8UnsignedInt:
		return render.FormatD32SignedFloatS8
	case core1_0.FormatD24UnsignedNormalizedS8UnsignedInt:
		return render.FormatD24UNormS8
	}
	return render.FormatUndefined
}

func toCorePresentMode(mode render.PresentMode) khr_surface.PresentMode {
	switch mode {
	case render.PresentModeMailbox:
		return khr_surface.PresentModeMailbox
	case render.PresentModeImmediate:
		return khr_surface.PresentModeImmediate
	}
	return khr_surface.PresentModeFIFO
}

func fromCorePresentMode(mode khr_surface.PresentMode) (render.PresentMode, bool) {
	switch mode {
	case khr_surface.PresentModeFIFO:
		return render.PresentModeFIFO, true
	case khr_surface.PresentModeMailbox:
		return render.PresentModeMailbox, true
	case khr_surface.PresentModeImmediate:
		return render.PresentModeImmediate, true
	}
	return 0, false
}

func toCoreExtent(extent render.Extent) core1_0.Extent2D {
	return core1_0.Extent2D{Width: extent.Width, Height: extent.Height}
}

func fromCoreExtent(extent core1_0.Extent2D) render.Extent {
	return render.Extent{Width: extent.Width, Height: extent.Height}
}

func toSampleFlags(samples int) core1_0.SampleCountFlags {
	switch samples {
	case 64:
		return core1_0.Samples64
	case 32:
		return core1_0.Samples32
	case 16:
		return core1_0.Samples16
	case 8:
		return core1_0.Samples8
	case 4:
		return core1_0.Samples4
	case 2:
		return core1_0.Samples2
	}
	return core1_0.Samples1
}

func fromSampleFlags(samples core1_0.SampleCountFlags) int {
	switch samples {
	case core1_0.Samples64:
		return 64
	case core1_0.Samples32:
		return 32
	case core1_0.Samples16:
		return 16
	case core1_0.Samples8:
		return 8
	case core1_0.Samples4:
		return 4
	case core1_0.Samples2:
		return 2
	}
	return 1
}

func fromCoreMemoryFlags(flags core1_0.MemoryPropertyFlags) render.MemoryPropertyFlags {
	var out render.MemoryPropertyFlags
	if flags&core1_0.MemoryPropertyDeviceLocal != 0 {
		out |= render.MemoryDeviceLocal
	}
	if flags&core1_0.MemoryPropertyHostVisible != 0 {
		out |= render.MemoryHostVisible
	}
	if flags&core1_0.MemoryPropertyHostCoherent != 0 {
		out |= render.MemoryHostCoherent
	}
	if flags&core1_0.MemoryPropertyLazilyAllocated != 0 {
		out |= render.MemoryLazilyAllocated
	}
	return out
}
