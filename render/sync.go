package render

import "github.com/cockroachdb/errors"

// MaxFramesInFlight caps how many submitted frames may be unconfirmed
// at once. It is the CPU-side backpressure bound: the renderer blocks
// on a slot's fence before reusing it.
const MaxFramesInFlight = 2

// SyncObjects owns the per-slot synchronization primitives and the
// per-image fence table. The slot arrays are created once at startup
// and reused for the lifetime of the renderer; only the images-in-flight
// table tracks the swap chain, and it is re-sized (not merely cleared)
// whenever recreation changes the image count.
type SyncObjects struct {
	device         Device
	imageAvailable [MaxFramesInFlight]Handle
	renderFinished [MaxFramesInFlight]Handle
	inFlight       [MaxFramesInFlight]Handle
	imagesInFlight []Handle
}

// NewSyncObjects creates the slot semaphores and fences. Fences start
// signaled so the first wait on each slot returns immediately.
func NewSyncObjects(device Device, imageCount int) (*SyncObjects, error) {
	s := &SyncObjects{device: device}

	for i := 0; i < MaxFramesInFlight; i++ {
		semaphore, err := device.CreateSemaphore()
		if err != nil {
			s.Destroy()
			return nil, errors.Wrapf(err, "create image-available semaphore %d", i)
		}
		s.imageAvailable[i] = semaphore

		semaphore, err = device.CreateSemaphore()
		if err != nil {
			s.Destroy()
			return nil, errors.Wrapf(err, "create render-finished semaphore %d", i)
		}
		s.renderFinished[i] = semaphore

		fence, err := device.CreateFence(true)
		if err != nil {
			s.Destroy()
			return nil, errors.Wrapf(err, "create in-flight fence %d", i)
		}
		s.inFlight[i] = fence
	}

	s.imagesInFlight = make([]Handle, imageCount)
	return s, nil
}

// Resize replaces the images-in-flight table for a new image count. All
// entries start clear; the recreation barrier has already guaranteed no
// work references the old images.
func (s *SyncObjects) Resize(imageCount int) {
	s.imagesInFlight = make([]Handle, imageCount)
}

func (s *SyncObjects) ImageAvailable(frame int) Handle {
	return s.imageAvailable[frame]
}

func (s *SyncObjects) RenderFinished(frame int) Handle {
	return s.renderFinished[frame]
}

func (s *SyncObjects) InFlightFence(frame int) Handle {
	return s.inFlight[frame]
}

// ImageFence is the fence of the last submission targeting image img,
// or the zero handle when none is outstanding.
func (s *SyncObjects) ImageFence(img int) Handle {
	return s.imagesInFlight[img]
}

func (s *SyncObjects) SetImageFence(img int, fence Handle) {
	s.imagesInFlight[img] = fence
}

func (s *SyncObjects) ImageCount() int {
	return len(s.imagesInFlight)
}

func (s *SyncObjects) Destroy() {
	for i := 0; i < MaxFramesInFlight; i++ {
		if !s.imageAvailable[i].IsZero() {
			s.device.DestroySemaphore(s.imageAvailable[i])
			s.imageAvailable[i] = Handle{}
		}
		if !s.renderFinished[i].IsZero() {
			s.device.DestroySemaphore(s.renderFinished[i])
			s.renderFinished[i] = Handle{}
		}
		if !s.inFlight[i].IsZero() {
			s.device.DestroyFence(s.inFlight[i])
			s.inFlight[i] = Handle{}
		}
	}
	s.imagesInFlight = nil
}
