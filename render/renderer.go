package render

import "github.com/cockroachdb/errors"

// UpdateFunc applies the current simulation state (camera transform,
// uniform contents) to the resources bound to one swap-chain image. It
// runs inside the present cycle, after the image's prior fence has been
// observed signaled.
type UpdateFunc func(imageIndex int, extent Extent) error

// RendererConfig parameterizes renderer creation.
type RendererConfig struct {
	// Drawable is the initial surface size in pixels.
	Drawable Extent
	// Update is invoked once per present cycle for the acquired image.
	// May be nil.
	Update UpdateFunc
}

// Renderer drives the present cycle: wait on the frame slot's fence,
// acquire an image, guard the image's own fence, update, submit,
// present, advance. It owns the swap chain, the shared attachments, the
// framebuffer set, and the sync objects, and recreates all of them when
// the surface changes.
type Renderer struct {
	device       Device
	swapchain    *Swapchain
	attachments  *Attachments
	framebuffers *Framebuffers
	sync         *SyncObjects
	renderPass   Handle
	update       UpdateFunc

	drawable      Extent
	currentFrame  int
	cycleCount    uint64
	needsRecreate bool
}

// NewRenderer builds the full presentation stack against the given
// device. Any creation failure here is fatal to the caller: it
// indicates device loss or misconfiguration, and no retry is
// meaningful.
func NewRenderer(device Device, cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		device:   device,
		drawable: cfg.Drawable,
		update:   cfg.Update,
	}

	swapchain, err := NewSwapchain(device, cfg.Drawable)
	if err != nil {
		return nil, err
	}
	r.swapchain = swapchain

	attachments, err := NewAttachments(device, swapchain.Extent(), swapchain.Format().Format)
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}
	r.attachments = attachments

	renderPass, err := r.createRenderPass()
	if err != nil {
		r.teardown()
		return nil, err
	}
	r.renderPass = renderPass

	r.framebuffers = NewFramebuffers(device)
	if err := r.framebuffers.Rebuild(renderPass, swapchain, attachments); err != nil {
		r.teardown()
		return nil, err
	}

	sync, err := NewSyncObjects(device, swapchain.ImageCount())
	if err != nil {
		r.teardown()
		return nil, err
	}
	r.sync = sync

	if err := device.PrepareFrames(renderPass, r.framebuffers.Handles(), swapchain.Extent()); err != nil {
		r.teardown()
		return nil, errors.Wrap(err, "prepare frames")
	}

	return r, nil
}

func (r *Renderer) createRenderPass() (Handle, error) {
	depthFormat, err := r.device.DepthFormat()
	if err != nil {
		return Handle{}, errors.Wrap(err, "find depth format")
	}

	pass, err := r.device.CreateRenderPass(r.swapchain.Format().Format, depthFormat, r.device.SampleCount())
	if err != nil {
		return Handle{}, errors.Wrap(err, "create render pass")
	}
	return pass, nil
}

// DrawFrame runs one present cycle for the frame slot
// cycleCount mod MaxFramesInFlight. OutOfDate results are absorbed by
// recreating the presentation stack; only fatal device errors surface
// to the caller.
func (r *Renderer) DrawFrame() error {
	if r.needsRecreate {
		r.needsRecreate = false
		if err := r.recreate(); err != nil {
			return err
		}
	}

	f := r.currentFrame

	// Step 1: bound the frames in flight. At most MaxFramesInFlight
	// submissions are unconfirmed once this wait returns.
	if err := r.device.WaitForFence(r.sync.InFlightFence(f), NoTimeout); err != nil {
		return errors.Wrapf(err, "wait for frame slot %d fence", f)
	}

	// Step 2: acquire.
	img, res, err := r.swapchain.AcquireNextImage(r.sync.ImageAvailable(f), NoTimeout)
	if err != nil {
		return errors.Wrap(err, "acquire swapchain image")
	}
	if res == AcquireOutOfDate {
		// Abort the cycle; the next tick restarts at step 1 with a
		// fresh chain.
		return r.recreate()
	}
	if res == AcquireSuboptimal {
		r.needsRecreate = true
	}

	// Step 3: a different frame slot may still have GPU work targeting
	// this image (possible whenever MaxFramesInFlight differs from the
	// image count). Wait it out before touching the image's resources.
	if fence := r.sync.ImageFence(img); !fence.IsZero() {
		if err := r.device.WaitForFence(fence, NoTimeout); err != nil {
			return errors.Wrapf(err, "wait for image %d fence", img)
		}
	}

	// Step 4: update.
	if r.update != nil {
		if err := r.update(img, r.swapchain.Extent()); err != nil {
			return errors.Wrapf(err, "update image %d", img)
		}
	}

	// Step 5: bind this slot's fence to the image, then drop it to
	// unsignaled for the submission below.
	r.sync.SetImageFence(img, r.sync.InFlightFence(f))
	if err := r.device.ResetFence(r.sync.InFlightFence(f)); err != nil {
		return errors.Wrapf(err, "reset frame slot %d fence", f)
	}

	// Step 6: submit.
	err = r.device.Submit(SubmitInfo{
		ImageIndex:      img,
		WaitSemaphore:   r.sync.ImageAvailable(f),
		SignalSemaphore: r.sync.RenderFinished(f),
	}, r.sync.InFlightFence(f))
	if err != nil {
		return errors.Wrap(err, "submit rendering work")
	}

	// Step 7: present. A stale result here schedules recreation for the
	// next cycle; the current image still goes out.
	res, err = r.device.Present(r.swapchain.Handle(), img, r.sync.RenderFinished(f))
	if err != nil {
		return errors.Wrap(err, "present image")
	}
	if res == AcquireOutOfDate || res == AcquireSuboptimal {
		r.needsRecreate = true
	}

	// Step 8: advance.
	r.cycleCount++
	r.currentFrame = int(r.cycleCount % MaxFramesInFlight)

	return nil
}

// Recreate rebuilds the presentation stack for a new drawable size.
// Zero-sized drawables (minimized windows) are ignored.
func (r *Renderer) Recreate(drawable Extent) error {
	if drawable.Width == 0 || drawable.Height == 0 {
		return nil
	}

	r.drawable = drawable
	return r.recreate()
}

// recreate is the barrier operation: it waits until no GPU work can
// reference the old resources, then rebuilds in dependency order
// extent, attachments, swap chain, framebuffers, and finally the
// images-in-flight table when the image count changed. Slot semaphores
// and fences survive recreation untouched.
func (r *Renderer) recreate() error {
	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait idle before recreation")
	}

	support, err := r.device.QuerySwapchainSupport()
	if err != nil {
		return errors.Wrap(err, "query swapchain support")
	}
	sel := negotiate(support, r.drawable)

	oldCount := r.swapchain.ImageCount()

	// Framebuffers reference both the old attachments and the old
	// swap-chain views; they go first.
	r.framebuffers.Destroy()

	if err := r.attachments.Recreate(sel.extent, sel.format.Format); err != nil {
		return err
	}

	if err := r.swapchain.recreateWith(sel); err != nil {
		return err
	}

	r.device.DestroyRenderPass(r.renderPass)
	r.renderPass, err = r.createRenderPass()
	if err != nil {
		return err
	}

	if err := r.framebuffers.Rebuild(r.renderPass, r.swapchain, r.attachments); err != nil {
		return err
	}

	if r.swapchain.ImageCount() != oldCount {
		r.sync.Resize(r.swapchain.ImageCount())
	}

	if err := r.device.PrepareFrames(r.renderPass, r.framebuffers.Handles(), r.swapchain.Extent()); err != nil {
		return errors.Wrap(err, "prepare frames")
	}

	return nil
}

// Extent is the current presentation extent.
func (r *Renderer) Extent() Extent {
	return r.swapchain.Extent()
}

// Destroy waits for the device to go idle and releases every owned
// resource.
func (r *Renderer) Destroy() error {
	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait idle before renderer teardown")
	}

	r.teardown()
	return nil
}

func (r *Renderer) teardown() {
	if r.sync != nil {
		r.sync.Destroy()
		r.sync = nil
	}
	if r.framebuffers != nil {
		r.framebuffers.Destroy()
		r.framebuffers = nil
	}
	if !r.renderPass.IsZero() {
		r.device.DestroyRenderPass(r.renderPass)
		r.renderPass = Handle{}
	}
	if r.attachments != nil {
		r.attachments.Destroy()
		r.attachments = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
}
