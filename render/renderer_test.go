package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, device *mockDevice, update UpdateFunc) *Renderer {
	t.Helper()
	r, err := NewRenderer(device, RendererConfig{
		Drawable: Extent{Width: 800, Height: 600},
		Update:   update,
	})
	require.NoError(t, err)
	return r
}

func TestFramesInFlightBound(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)

	// Slot fences start signaled: the first MaxFramesInFlight cycles
	// must not block at all.
	for i := 0; i < MaxFramesInFlight; i++ {
		require.NoError(t, r.DrawFrame())
	}
	assert.Equal(t, 0, device.forcedRetires, "first %d cycles must not block", MaxFramesInFlight)
	assert.Equal(t, MaxFramesInFlight, device.outstanding)

	// The (K+1)-th cycle reuses slot 0 and must block until the oldest
	// submission retires.
	require.NoError(t, r.DrawFrame())
	assert.GreaterOrEqual(t, device.forcedRetires, 1)

	for i := 0; i < 10; i++ {
		require.NoError(t, r.DrawFrame())
	}
	assert.Equal(t, MaxFramesInFlight, device.maxOutstanding,
		"never more than %d unretired submissions", MaxFramesInFlight)
}

func TestImageFenceGuardBlocks(t *testing.T) {
	device := newMockDevice(t) // N=3, K=2
	r := newTestRenderer(t, device, nil)

	// Cycle 0 (slot 0, image 0) and cycle 1 (slot 1, image 1) run
	// without blocking. Cycle 2 (slot 0, image 2) blocks once at the
	// slot fence. Cycle 3 (slot 1, image 0) blocks at the slot fence
	// AND at image 0's recorded fence, which slot 0 re-armed in cycle 2:
	// that second wait is the step-3 guard for K != N.
	require.NoError(t, r.DrawFrame())
	require.NoError(t, r.DrawFrame())
	assert.Equal(t, 0, device.forcedRetires)

	require.NoError(t, r.DrawFrame())
	assert.Equal(t, 1, device.forcedRetires)

	require.NoError(t, r.DrawFrame())
	assert.Equal(t, 3, device.forcedRetires,
		"cycle 3 must block on both the slot fence and the image fence")
}

func TestImagesInFlightAfterFiveCycles(t *testing.T) {
	device := newMockDevice(t) // N=3, K=2
	r := newTestRenderer(t, device, nil)

	initialFramebuffers := device.framebufferCreates
	require.Equal(t, 3, initialFramebuffers)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawFrame())
	}

	// Cycles map (slot, image) as (0,0) (1,1) (0,2) (1,0) (0,1): the
	// two most recent submissions leave slot 1's fence on image 0 and
	// slot 0's fence on image 1. Image 2 still records slot 0's fence
	// from cycle 2.
	assert.Equal(t, r.sync.InFlightFence(1), r.sync.ImageFence(0))
	assert.Equal(t, r.sync.InFlightFence(0), r.sync.ImageFence(1))
	assert.Equal(t, r.sync.InFlightFence(0), r.sync.ImageFence(2))

	assert.Equal(t, initialFramebuffers, device.framebufferCreates,
		"no resize: the framebuffer set must never be rebuilt")
	assert.Equal(t, 1, device.prepareCalls)
}

func TestUpdateRunsOncePerCycleWithAcquiredImage(t *testing.T) {
	device := newMockDevice(t)

	var updates []int
	r := newTestRenderer(t, device, func(imageIndex int, extent Extent) error {
		updates = append(updates, imageIndex)
		assert.Equal(t, Extent{Width: 800, Height: 600}, extent)
		return nil
	})

	for i := 0; i < 4; i++ {
		require.NoError(t, r.DrawFrame())
	}
	assert.Equal(t, []int{0, 1, 2, 0}, updates)
}

func TestRecreateRoundTrip(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.DrawFrame())
	}

	oldFramebuffers := append([]Handle(nil), r.framebuffers.Handles()...)
	oldColourView := r.attachments.ColourView()
	oldDepthView := r.attachments.DepthView()
	oldSwapchain := r.swapchain.Handle()

	device.support.Capabilities.CurrentExtent = Extent{Width: 1024, Height: 768}
	require.NoError(t, r.Recreate(Extent{Width: 1024, Height: 768}))

	assert.Equal(t, Extent{Width: 1024, Height: 768}, r.Extent())
	assert.Equal(t, r.swapchain.ImageCount(), r.framebuffers.Count())

	for _, old := range oldFramebuffers {
		assert.False(t, device.live(old), "old framebuffer must be released")
	}
	assert.False(t, device.live(oldColourView))
	assert.False(t, device.live(oldDepthView))
	assert.False(t, device.live(oldSwapchain))

	assert.NotEqual(t, oldColourView, r.attachments.ColourView())
	assert.NotEqual(t, oldDepthView, r.attachments.DepthView())
	assert.NotEqual(t, oldSwapchain, r.swapchain.Handle())

	// The rebuilt stack still presents. The mock fails the test if any
	// stale handle is used past this point.
	for i := 0; i < 3; i++ {
		require.NoError(t, r.DrawFrame())
	}
}

func TestRecreateIgnoresZeroExtent(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)

	prepares := device.prepareCalls
	require.NoError(t, r.Recreate(Extent{Width: 0, Height: 600}))
	assert.Equal(t, prepares, device.prepareCalls, "minimized window must not rebuild")
}

func TestAcquireOutOfDateTriggersFullRecreation(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)
	require.Equal(t, 3, r.swapchain.ImageCount())

	// The surface changed: acquisition reports out of date and the new
	// negotiation yields a different image count.
	device.acquireScript = []AcquireResult{AcquireOutOfDate}
	device.support.Capabilities.MinImageCount = 3

	require.NoError(t, r.DrawFrame())

	assert.Empty(t, device.submits, "the aborted cycle must not submit")
	assert.Equal(t, uint64(0), r.cycleCount, "the aborted cycle must not advance the frame slot")

	assert.Equal(t, 4, r.swapchain.ImageCount())
	assert.Equal(t, 4, r.framebuffers.Count())
	assert.Equal(t, 4, r.sync.ImageCount(), "images-in-flight must be re-sized, not cleared")
	for img := 0; img < r.sync.ImageCount(); img++ {
		assert.True(t, r.sync.ImageFence(img).IsZero())
	}

	// The next tick restarts cleanly.
	require.NoError(t, r.DrawFrame())
	assert.Len(t, device.submits, 1)
}

func TestAcquireSuboptimalPresentsThenRecreates(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)

	device.acquireScript = []AcquireResult{AcquireSuboptimal}
	require.NoError(t, r.DrawFrame())

	assert.Len(t, device.submits, 1, "a suboptimal image is still presented")
	assert.Len(t, device.presented, 1)

	prepares := device.prepareCalls
	require.NoError(t, r.DrawFrame())
	assert.Equal(t, prepares+1, device.prepareCalls, "recreation deferred to the next cycle")
	assert.Len(t, device.submits, 2)
}

func TestPresentStaleSchedulesRecreation(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)

	device.presentScript = []AcquireResult{AcquireOutOfDate}
	require.NoError(t, r.DrawFrame())

	assert.Equal(t, uint64(1), r.cycleCount, "the current cycle completes")
	assert.Len(t, device.presented, 1)

	prepares := device.prepareCalls
	require.NoError(t, r.DrawFrame())
	assert.Equal(t, prepares+1, device.prepareCalls)
}

func TestRendererDestroyReleasesEverything(t *testing.T) {
	device := newMockDevice(t)
	r := newTestRenderer(t, device, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawFrame())
	}
	device.support.Capabilities.CurrentExtent = Extent{Width: 640, Height: 480}
	require.NoError(t, r.Recreate(Extent{Width: 640, Height: 480}))
	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawFrame())
	}

	require.NoError(t, r.Destroy())
	assert.Equal(t, 0, device.objects.Len(),
		"every handle must be released on every exit path")
}
