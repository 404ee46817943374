package vkng

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"

	"github.com/wave-render/wave/render"
)

// CreateImage creates an unbound attachment image. Memory is allocated
// and bound separately so the caller picks the memory type.
func (d *Device) CreateImage(info render.ImageInfo) (render.Handle, error) {
	usage := core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageColorAttachment
	if info.Usage == render.UsageDepth {
		usage = core1_0.ImageUsageDepthStencilAttachment
	}

	image, _, err := d.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        toCoreFormat(info.Format),
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       toSampleFlags(info.Samples),
	})
	if err != nil {
		return render.Handle{}, errors.Wrap(err, "create image")
	}

	return d.images.Insert(image), nil
}

func (d *Device) DestroyImage(image render.Handle) {
	if img, ok := d.images.Remove(image); ok {
		d.deviceDriver.DestroyImage(img, nil)
	}
}

func (d *Device) ImageMemoryRequirements(image render.Handle) (render.MemoryRequirements, error) {
	img, ok := d.images.Get(image)
	if !ok {
		return render.MemoryRequirements{}, errors.New("memory requirements for dead image handle")
	}

	memReqs := d.deviceDriver.GetImageMemoryRequirements(img)
	return render.MemoryRequirements{
		Size:     memReqs.Size,
		TypeBits: memReqs.MemoryTypeBits,
	}, nil
}

func (d *Device) AllocateMemory(size int, typeIndex int) (render.Handle, error) {
	memory, _, err := d.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	})
	if err != nil {
		return render.Handle{}, errors.Wrapf(err, "allocate %d bytes of device memory", size)
	}

	return d.memories.Insert(memory), nil
}

func (d *Device) BindImageMemory(image, memory render.Handle) error {
	img, ok := d.images.Get(image)
	if !ok {
		return errors.New("bind memory to dead image handle")
	}
	mem, ok := d.memories.Get(memory)
	if !ok {
		return errors.New("bind dead memory handle")
	}

	_, err := d.deviceDriver.BindImageMemory(img, mem, 0)
	if err != nil {
		return errors.Wrap(err, "bind image memory")
	}
	return nil
}

func (d *Device) FreeMemory(memory render.Handle) {
	if mem, ok := d.memories.Remove(memory); ok {
		d.deviceDriver.FreeMemory(mem, nil)
	}
}

func (d *Device) CreateImageView(image render.Handle, format render.Format, usage render.AttachmentUsage) (render.Handle, error) {
	img, ok := d.images.Get(image)
	if !ok {
		return render.Handle{}, errors.New("create view for dead image handle")
	}

	aspect := core1_0.ImageAspectColor
	if usage == render.UsageDepth {
		aspect = core1_0.ImageAspectDepth
	}

	view, _, err := d.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    img,
		ViewType: core1_0.ImageViewType2D,
		Format:   toCoreFormat(format),
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return render.Handle{}, errors.Wrap(err, "create image view")
	}

	return d.views.Insert(view), nil
}

func (d *Device) DestroyImageView(view render.Handle) {
	if v, ok := d.views.Remove(view); ok {
		d.deviceDriver.DestroyImageView(v, nil)
	}
}

// CreateRenderPass builds the engine's single pass: a multisampled
// colour attachment, a depth attachment, and a single-sample resolve
// target that is presented.
func (d *Device) CreateRenderPass(color, depth render.Format, samples int) (render.Handle, error) {
	sampleFlags := toSampleFlags(samples)

	renderPass, _, err := d.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         toCoreFormat(color),
				Samples:        sampleFlags,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			{
				Format:         toCoreFormat(depth),
				Samples:        sampleFlags,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
			{
				Format:         toCoreFormat(color),
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpDontCare,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				ResolveAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 2,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return render.Handle{}, errors.Wrap(err, "create render pass")
	}

	return d.renderPasses.Insert(renderPass), nil
}

func (d *Device) DestroyRenderPass(pass render.Handle) {
	if rp, ok := d.renderPasses.Remove(pass); ok {
		d.deviceDriver.DestroyRenderPass(rp, nil)
	}
}

func (d *Device) CreateFramebuffer(info render.FramebufferInfo) (render.Handle, error) {
	renderPass, ok := d.renderPasses.Get(info.RenderPass)
	if !ok {
		return render.Handle{}, errors.New("create framebuffer with dead render pass handle")
	}

	attachments := make([]core1_0.ImageView, 0, len(info.Attachments))
	for _, handle := range info.Attachments {
		view, ok := d.views.Get(handle)
		if !ok {
			return render.Handle{}, errors.New("create framebuffer with dead image view handle")
		}
		attachments = append(attachments, view)
	}

	framebuffer, _, err := d.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  renderPass,
		Layers:      1,
		Attachments: attachments,
		Width:       info.Extent.Width,
		Height:      info.Extent.Height,
	})
	if err != nil {
		return render.Handle{}, errors.Wrap(err, "create framebuffer")
	}

	return d.framebuffers.Insert(framebuffer), nil
}

func (d *Device) DestroyFramebuffer(framebuffer render.Handle) {
	if fb, ok := d.framebuffers.Remove(framebuffer); ok {
		d.deviceDriver.DestroyFramebuffer(fb, nil)
	}
}

func (d *Device) CreateSemaphore() (render.Handle, error) {
	semaphore, _, err := d.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return render.Handle{}, errors.Wrap(err, "create semaphore")
	}
	return d.semaphores.Insert(semaphore), nil
}

func (d *Device) DestroySemaphore(semaphore render.Handle) {
	if s, ok := d.semaphores.Remove(semaphore); ok {
		d.deviceDriver.DestroySemaphore(s, nil)
	}
}

func (d *Device) CreateFence(signaled bool) (render.Handle, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, _, err := d.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
	if err != nil {
		return render.Handle{}, errors.Wrap(err, "create fence")
	}
	return d.fences.Insert(fence), nil
}

func (d *Device) DestroyFence(fence render.Handle) {
	if f, ok := d.fences.Remove(fence); ok {
		d.deviceDriver.DestroyFence(f, nil)
	}
}

func (d *Device) WaitForFence(fence render.Handle, timeout time.Duration) error {
	f, ok := d.fences.Get(fence)
	if !ok {
		return errors.New("wait on dead fence handle")
	}

	_, err := d.deviceDriver.WaitForFences(true, timeout, f)
	if err != nil {
		return errors.Wrap(err, "wait for fence")
	}
	return nil
}

func (d *Device) ResetFence(fence render.Handle) error {
	f, ok := d.fences.Get(fence)
	if !ok {
		return errors.New("reset dead fence handle")
	}

	_, err := d.deviceDriver.ResetFences(f)
	if err != nil {
		return errors.Wrap(err, "reset fence")
	}
	return nil
}
