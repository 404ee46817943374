// Package render implements the frame synchronization and presentation
// core of the engine: swap-chain management, shared render-target
// attachments, per-image framebuffers, the bounded frames-in-flight
// protocol, and the acquire/submit/present cycle. The package talks to
// the GPU exclusively through the Device interface so the whole cycle
// can run against a mock device in tests.
package render

import "time"

// NoTimeout blocks fence waits and image acquisition indefinitely.
const NoTimeout time.Duration = 1<<63 - 1

// AcquireResult reports the outcome of acquiring or presenting a
// swap-chain image. OutOfDate is not a failure: it means the surface has
// changed underneath the swap chain and the chain must be recreated
// before any further use. Suboptimal images may still be presented.
type AcquireResult int

const (
	AcquireSuccess AcquireResult = iota
	AcquireSuboptimal
	AcquireOutOfDate
)

func (r AcquireResult) String() string {
	switch r {
	case AcquireSuccess:
		return "success"
	case AcquireSuboptimal:
		return "suboptimal"
	case AcquireOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// Format is a backend-independent pixel format. Only the formats the
// engine negotiates for presentation and depth testing are enumerated.
type Format int

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8SRGB
	FormatR8G8B8A8SRGB
	FormatB8G8R8A8UNorm
	FormatD32SignedFloat
	FormatD32SignedFloatS8
	FormatD24UNormS8
)

type ColorSpace int

const (
	ColorSpaceSRGBNonlinear ColorSpace = iota
)

type PresentMode int

const (
	PresentModeFIFO PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

// Extent is the pixel width and height of the presentation surface. It
// is the source of truth for attachment and framebuffer sizing; every
// size-dependent resource is rebuilt when it changes.
type Extent struct {
	Width  int
	Height int
}

// SurfaceFormat pairs a pixel format with the colour space it is
// presented in.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SurfaceCapabilities mirrors what the presentation surface reports. A
// MaxImageCount of zero means the surface imposes no upper bound. A
// CurrentExtent width of -1 means the surface takes its size from the
// swap chain rather than dictating it.
type SurfaceCapabilities struct {
	MinImageCount  int
	MaxImageCount  int
	CurrentExtent  Extent
	MinImageExtent Extent
	MaxImageExtent Extent
}

// SwapchainSupport is the result of querying the surface before
// swap-chain creation.
type SwapchainSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

// SwapchainInfo parameterizes swap-chain creation. The device may grant
// more images than MinImageCount.
type SwapchainInfo struct {
	MinImageCount int
	Format        SurfaceFormat
	Extent        Extent
	PresentMode   PresentMode
}

// AttachmentUsage distinguishes the two shared render-target
// attachments.
type AttachmentUsage int

const (
	UsageColor AttachmentUsage = iota
	UsageDepth
)

// ImageInfo parameterizes attachment image creation. Memory is bound
// separately so the caller picks the memory type.
type ImageInfo struct {
	Extent  Extent
	Format  Format
	Usage   AttachmentUsage
	Samples int
}

// MemoryRequirements reports what an image allocation needs: a byte
// size and a bitmask of usable memory type indices.
type MemoryRequirements struct {
	Size     int
	TypeBits uint32
}

// MemoryPropertyFlags describe a device memory type.
type MemoryPropertyFlags uint32

const (
	MemoryDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryLazilyAllocated
)

// MemoryType is one entry of the device's memory type enumeration. The
// device-defined order is significant and must be preserved.
type MemoryType struct {
	PropertyFlags MemoryPropertyFlags
}

type MemoryProperties struct {
	Types []MemoryType
}

// FramebufferInfo binds the shared attachment views and one swap-chain
// image view into a single render target.
type FramebufferInfo struct {
	RenderPass  Handle
	Attachments []Handle
	Extent      Extent
}

// SubmitInfo describes one frame's rendering submission: the work
// recorded for ImageIndex waits on WaitSemaphore before writing colour
// output and signals SignalSemaphore when it completes.
type SubmitInfo struct {
	ImageIndex      int
	WaitSemaphore   Handle
	SignalSemaphore Handle
}

// Device is the capability surface the frame-sync core requires from a
// graphics backend. The production implementation lives in render/vkng;
// tests drive the same code paths with a mock.
//
// All Create* calls are fatal-on-failure from the caller's point of
// view: the renderer propagates their errors up and the host
// terminates, because they only fail on device loss or
// misconfiguration. Acquire and Present instead report OutOfDate and
// Suboptimal through AcquireResult, which the renderer handles itself.
type Device interface {
	QuerySwapchainSupport() (SwapchainSupport, error)

	CreateSwapchain(info SwapchainInfo) (swapchain Handle, images []Handle, err error)
	DestroySwapchain(swapchain Handle)
	AcquireNextImage(swapchain Handle, signal Handle, timeout time.Duration) (int, AcquireResult, error)
	Present(swapchain Handle, imageIndex int, wait Handle) (AcquireResult, error)

	CreateImage(info ImageInfo) (Handle, error)
	DestroyImage(image Handle)
	ImageMemoryRequirements(image Handle) (MemoryRequirements, error)
	AllocateMemory(size int, typeIndex int) (Handle, error)
	BindImageMemory(image, memory Handle) error
	FreeMemory(memory Handle)
	CreateImageView(image Handle, format Format, usage AttachmentUsage) (Handle, error)
	DestroyImageView(view Handle)

	CreateRenderPass(color, depth Format, samples int) (Handle, error)
	DestroyRenderPass(pass Handle)
	CreateFramebuffer(info FramebufferInfo) (Handle, error)
	DestroyFramebuffer(framebuffer Handle)

	CreateSemaphore() (Handle, error)
	DestroySemaphore(semaphore Handle)
	CreateFence(signaled bool) (Handle, error)
	DestroyFence(fence Handle)
	WaitForFence(fence Handle, timeout time.Duration) error
	ResetFence(fence Handle) error

	// PrepareFrames gives the backend its chance to (re)build per-image
	// state (command buffers, uniform buffers) after the framebuffer set
	// has been built or rebuilt.
	PrepareFrames(pass Handle, framebuffers []Handle, extent Extent) error

	Submit(info SubmitInfo, fence Handle) error
	WaitIdle() error

	MemoryProperties() MemoryProperties
	DepthFormat() (Format, error)
	SampleCount() int
}
