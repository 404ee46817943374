package render

import "github.com/cockroachdb/errors"

// Framebuffers is the per-image render-target set: one framebuffer per
// swap-chain image, each combining the shared colour and depth views
// with that image's own view. The set always matches the swap-chain
// image count; partial rebuilds are not supported because a surviving
// framebuffer could keep a destroyed view alive.
type Framebuffers struct {
	device  Device
	handles []Handle
}

func NewFramebuffers(device Device) *Framebuffers {
	return &Framebuffers{device: device}
}

// Rebuild replaces the whole set. It is idempotent: any prior
// framebuffers are destroyed first.
func (f *Framebuffers) Rebuild(renderPass Handle, sc *Swapchain, attachments *Attachments) error {
	f.Destroy()

	handles := make([]Handle, 0, sc.ImageCount())
	for i := 0; i < sc.ImageCount(); i++ {
		framebuffer, err := f.device.CreateFramebuffer(FramebufferInfo{
			RenderPass: renderPass,
			Attachments: []Handle{
				attachments.ColourView(),
				attachments.DepthView(),
				sc.ImageView(i),
			},
			Extent: sc.Extent(),
		})
		if err != nil {
			for _, h := range handles {
				f.device.DestroyFramebuffer(h)
			}
			return errors.Wrapf(err, "create framebuffer %d", i)
		}

		handles = append(handles, framebuffer)
	}

	f.handles = handles
	return nil
}

func (f *Framebuffers) Count() int {
	return len(f.handles)
}

func (f *Framebuffers) At(i int) Handle {
	return f.handles[i]
}

// Handles returns the set in image order.
func (f *Framebuffers) Handles() []Handle {
	return f.handles
}

func (f *Framebuffers) Destroy() {
	for _, framebuffer := range f.handles {
		f.device.DestroyFramebuffer(framebuffer)
	}
	f.handles = nil
}
