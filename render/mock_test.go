package render

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

// mockObject is one entry in the mock device's arena. The mock keeps
// every object kind in a single table so stale-handle detection covers
// cross-kind confusion too.
type mockObject struct {
	kind string

	// fences
	signaled bool

	// framebuffers remember what they were built from so tests can
	// prove no destroyed view is referenced.
	attachments []Handle

	// images
	info ImageInfo
}

type mockSubmit struct {
	fence      Handle
	imageIndex int
	forced     bool
}

// mockDevice implements Device with a demand-retired GPU timeline:
// submissions pile up until a fence wait forces the oldest to retire,
// mirroring a GPU that finishes work strictly in submission order.
type mockDevice struct {
	t *testing.T

	objects Table[*mockObject]

	support SwapchainSupport

	// pending submissions, oldest first
	pending        []mockSubmit
	outstanding    int
	maxOutstanding int
	forcedRetires  int

	nextImage          int
	imageCount         int
	acquireScript      []AcquireResult
	presentScript      []AcquireResult
	framebufferCreates int
	prepareCalls       int
	submits            []mockSubmit
	presented          []int

	memProps MemoryProperties
}

func newMockDevice(t *testing.T) *mockDevice {
	return &mockDevice{
		t: t,
		support: SwapchainSupport{
			Capabilities: SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  8,
				CurrentExtent:  Extent{Width: 800, Height: 600},
				MinImageExtent: Extent{Width: 1, Height: 1},
				MaxImageExtent: Extent{Width: 4096, Height: 4096},
			},
			Formats: []SurfaceFormat{
				{Format: FormatB8G8R8A8UNorm, ColorSpace: ColorSpaceSRGBNonlinear},
				{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
			},
			PresentModes: []PresentMode{PresentModeFIFO, PresentModeMailbox},
		},
		memProps: MemoryProperties{Types: []MemoryType{
			{PropertyFlags: MemoryHostVisible | MemoryHostCoherent},
			{PropertyFlags: MemoryDeviceLocal},
		}},
	}
}

func (d *mockDevice) insert(kind string) Handle {
	return d.objects.Insert(&mockObject{kind: kind})
}

func (d *mockDevice) get(kind string, h Handle) *mockObject {
	obj, ok := d.objects.Get(h)
	if !ok {
		d.t.Fatalf("stale or null %s handle used", kind)
	}
	if obj.kind != kind {
		d.t.Fatalf("handle kind mismatch: want %s, got %s", kind, obj.kind)
	}
	return obj
}

func (d *mockDevice) remove(kind string, h Handle) {
	obj, ok := d.objects.Get(h)
	if !ok {
		d.t.Fatalf("destroying stale or null %s handle", kind)
		return
	}
	if obj.kind != kind {
		d.t.Fatalf("destroying %s as %s", obj.kind, kind)
	}
	d.objects.Remove(h)
}

func (d *mockDevice) live(h Handle) bool {
	_, ok := d.objects.Get(h)
	return ok
}

func (d *mockDevice) QuerySwapchainSupport() (SwapchainSupport, error) {
	return d.support, nil
}

func (d *mockDevice) CreateSwapchain(info SwapchainInfo) (Handle, []Handle, error) {
	// The mock grants exactly what was asked for.
	d.imageCount = info.MinImageCount
	d.nextImage = 0

	swapchain := d.insert("swapchain")
	images := make([]Handle, 0, info.MinImageCount)
	for i := 0; i < info.MinImageCount; i++ {
		images = append(images, d.insert("swapchain image"))
	}
	// Swapchain images belong to the chain; track them on the object so
	// DestroySwapchain can release them.
	obj := d.get("swapchain", swapchain)
	obj.attachments = images
	return swapchain, images, nil
}

func (d *mockDevice) DestroySwapchain(swapchain Handle) {
	obj := d.get("swapchain", swapchain)
	for _, image := range obj.attachments {
		d.remove("swapchain image", image)
	}
	d.remove("swapchain", swapchain)
}

func (d *mockDevice) AcquireNextImage(swapchain Handle, signal Handle, timeout time.Duration) (int, AcquireResult, error) {
	d.get("swapchain", swapchain)
	d.get("semaphore", signal)

	if len(d.acquireScript) > 0 {
		res := d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
		if res == AcquireOutOfDate {
			return 0, res, nil
		}
		img := d.nextImage
		d.nextImage = (d.nextImage + 1) % d.imageCount
		return img, res, nil
	}

	img := d.nextImage
	d.nextImage = (d.nextImage + 1) % d.imageCount
	return img, AcquireSuccess, nil
}

func (d *mockDevice) Present(swapchain Handle, imageIndex int, wait Handle) (AcquireResult, error) {
	d.get("swapchain", swapchain)
	d.get("semaphore", wait)
	d.presented = append(d.presented, imageIndex)

	if len(d.presentScript) > 0 {
		res := d.presentScript[0]
		d.presentScript = d.presentScript[1:]
		return res, nil
	}
	return AcquireSuccess, nil
}

func (d *mockDevice) CreateImage(info ImageInfo) (Handle, error) {
	h := d.insert("image")
	d.get("image", h).info = info
	return h, nil
}

func (d *mockDevice) DestroyImage(image Handle) {
	d.remove("image", image)
}

func (d *mockDevice) ImageMemoryRequirements(image Handle) (MemoryRequirements, error) {
	obj := d.get("image", image)
	size := obj.info.Extent.Width * obj.info.Extent.Height * 4
	return MemoryRequirements{Size: size, TypeBits: 0b10}, nil
}

func (d *mockDevice) AllocateMemory(size int, typeIndex int) (Handle, error) {
	if typeIndex < 0 || typeIndex >= len(d.memProps.Types) {
		return Handle{}, errors.Newf("memory type index %d out of range", typeIndex)
	}
	return d.insert("memory"), nil
}

func (d *mockDevice) BindImageMemory(image, memory Handle) error {
	d.get("image", image)
	d.get("memory", memory)
	return nil
}

func (d *mockDevice) FreeMemory(memory Handle) {
	d.remove("memory", memory)
}

func (d *mockDevice) CreateImageView(image Handle, format Format, usage AttachmentUsage) (Handle, error) {
	obj, ok := d.objects.Get(image)
	if !ok || (obj.kind != "image" && obj.kind != "swapchain image") {
		d.t.Fatalf("image view created from stale or non-image handle")
	}
	return d.insert("view"), nil
}

func (d *mockDevice) DestroyImageView(view Handle) {
	d.remove("view", view)
}

func (d *mockDevice) CreateRenderPass(color, depth Format, samples int) (Handle, error) {
	return d.insert("render pass"), nil
}

func (d *mockDevice) DestroyRenderPass(pass Handle) {
	d.remove("render pass", pass)
}

func (d *mockDevice) CreateFramebuffer(info FramebufferInfo) (Handle, error) {
	d.get("render pass", info.RenderPass)
	for _, view := range info.Attachments {
		d.get("view", view)
	}
	d.framebufferCreates++

	h := d.insert("framebuffer")
	obj := d.get("framebuffer", h)
	obj.attachments = append([]Handle(nil), info.Attachments...)
	return h, nil
}

func (d *mockDevice) DestroyFramebuffer(framebuffer Handle) {
	d.remove("framebuffer", framebuffer)
}

func (d *mockDevice) CreateSemaphore() (Handle, error) {
	return d.insert("semaphore"), nil
}

func (d *mockDevice) DestroySemaphore(semaphore Handle) {
	d.remove("semaphore", semaphore)
}

func (d *mockDevice) CreateFence(signaled bool) (Handle, error) {
	h := d.insert("fence")
	d.get("fence", h).signaled = signaled
	return h, nil
}

func (d *mockDevice) DestroyFence(fence Handle) {
	d.remove("fence", fence)
}

// WaitForFence models the CPU blocking on the GPU: if the fence is
// unsignaled, the mock retires pending submissions in order until it
// signals. A fence with no pending submission would block forever; the
// mock fails the test instead.
func (d *mockDevice) WaitForFence(fence Handle, timeout time.Duration) error {
	obj := d.get("fence", fence)
	for !obj.signaled {
		if len(d.pending) == 0 {
			return errors.New("fence wait would never return: no pending submission signals it")
		}
		d.retireOldest(true)
	}
	return nil
}

func (d *mockDevice) retireOldest(forced bool) {
	submit := d.pending[0]
	d.pending = d.pending[1:]
	d.outstanding--
	if forced {
		d.forcedRetires++
	}
	d.get("fence", submit.fence).signaled = true
}

func (d *mockDevice) ResetFence(fence Handle) error {
	d.get("fence", fence).signaled = false
	return nil
}

func (d *mockDevice) PrepareFrames(pass Handle, framebuffers []Handle, extent Extent) error {
	d.get("render pass", pass)
	for _, framebuffer := range framebuffers {
		d.get("framebuffer", framebuffer)
	}
	d.prepareCalls++
	return nil
}

func (d *mockDevice) Submit(info SubmitInfo, fence Handle) error {
	d.get("semaphore", info.WaitSemaphore)
	d.get("semaphore", info.SignalSemaphore)
	obj := d.get("fence", fence)
	if obj.signaled {
		return errors.New("submitted with a fence that was not reset")
	}

	d.pending = append(d.pending, mockSubmit{fence: fence, imageIndex: info.ImageIndex})
	d.submits = append(d.submits, mockSubmit{fence: fence, imageIndex: info.ImageIndex})
	d.outstanding++
	if d.outstanding > d.maxOutstanding {
		d.maxOutstanding = d.outstanding
	}
	return nil
}

func (d *mockDevice) WaitIdle() error {
	for len(d.pending) > 0 {
		d.retireOldest(false)
	}
	return nil
}

func (d *mockDevice) MemoryProperties() MemoryProperties {
	return d.memProps
}

func (d *mockDevice) DepthFormat() (Format, error) {
	return FormatD32SignedFloat, nil
}

func (d *mockDevice) SampleCount() int {
	return 1
}
