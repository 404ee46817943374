package render

import "github.com/cockroachdb/errors"

// Attachment is one shared render-target image: the image itself, its
// backing memory, and a view. The view is lent read-only to every
// framebuffer; the Attachments set remains the owner.
type Attachment struct {
	image  Handle
	memory Handle
	view   Handle
	format Format
}

// Attachments owns the colour and depth attachments shared by all
// swap-chain framebuffers. Both are sized to the current extent and
// fully recreated whenever it changes.
type Attachments struct {
	device Device
	colour Attachment
	depth  Attachment
}

// NewAttachments allocates the colour and depth images at the given
// extent. The colour attachment matches the swap-chain format so it can
// resolve into the presentable images.
func NewAttachments(device Device, extent Extent, colorFormat Format) (*Attachments, error) {
	a := &Attachments{device: device}
	if err := a.create(extent, colorFormat); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Attachments) create(extent Extent, colorFormat Format) error {
	depthFormat, err := a.device.DepthFormat()
	if err != nil {
		return errors.Wrap(err, "find depth format")
	}

	samples := a.device.SampleCount()

	a.colour, err = a.createAttachment(extent, colorFormat, UsageColor, samples)
	if err != nil {
		return errors.Wrap(err, "create colour attachment")
	}

	a.depth, err = a.createAttachment(extent, depthFormat, UsageDepth, samples)
	if err != nil {
		a.releaseAttachment(&a.colour)
		return errors.Wrap(err, "create depth attachment")
	}

	return nil
}

func (a *Attachments) createAttachment(extent Extent, format Format, usage AttachmentUsage, samples int) (Attachment, error) {
	image, err := a.device.CreateImage(ImageInfo{
		Extent:  extent,
		Format:  format,
		Usage:   usage,
		Samples: samples,
	})
	if err != nil {
		return Attachment{}, err
	}

	reqs, err := a.device.ImageMemoryRequirements(image)
	if err != nil {
		a.device.DestroyImage(image)
		return Attachment{}, err
	}

	typeIndex, err := FindMemoryType(a.device.MemoryProperties(), reqs.TypeBits, MemoryDeviceLocal)
	if err != nil {
		a.device.DestroyImage(image)
		return Attachment{}, err
	}

	memory, err := a.device.AllocateMemory(reqs.Size, typeIndex)
	if err != nil {
		a.device.DestroyImage(image)
		return Attachment{}, err
	}

	if err := a.device.BindImageMemory(image, memory); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyImage(image)
		return Attachment{}, err
	}

	view, err := a.device.CreateImageView(image, format, usage)
	if err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyImage(image)
		return Attachment{}, err
	}

	return Attachment{image: image, memory: memory, view: view, format: format}, nil
}

// Recreate waits until no GPU work can reference the old attachments,
// releases them, and allocates replacements at the new extent. Every
// framebuffer depending on the old views is invalid afterwards and must
// be rebuilt.
func (a *Attachments) Recreate(extent Extent, colorFormat Format) error {
	if err := a.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait idle before attachment teardown")
	}

	a.release()
	return a.create(extent, colorFormat)
}

func (a *Attachments) release() {
	a.releaseAttachment(&a.colour)
	a.releaseAttachment(&a.depth)
}

func (a *Attachments) releaseAttachment(att *Attachment) {
	if !att.view.IsZero() {
		a.device.DestroyImageView(att.view)
	}
	if !att.image.IsZero() {
		a.device.DestroyImage(att.image)
	}
	if !att.memory.IsZero() {
		a.device.FreeMemory(att.memory)
	}
	*att = Attachment{}
}

// Destroy releases both attachments.
func (a *Attachments) Destroy() {
	a.release()
}

// ColourView is the shared colour attachment view.
func (a *Attachments) ColourView() Handle {
	return a.colour.view
}

// DepthView is the shared depth attachment view.
func (a *Attachments) DepthView() Handle {
	return a.depth.view
}

// DepthFormat is the format the depth attachment was created with.
func (a *Attachments) DepthFormat() Format {
	return a.depth.format
}
