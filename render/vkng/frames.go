package vkng

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"

	"github.com/wave-render/wave/geometry"
	"github.com/wave-render/wave/render"
)

// UniformBufferObject is the per-frame shader input: model, view, and
// projection matrices.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// frameState is per-swapchain-image state: one recorded command buffer
// and one host-visible uniform buffer per image. It is rebuilt whenever
// the framebuffer set changes.
type frameState struct {
	commandBuffers []core1_0.CommandBuffer
	uniformBuffers []core1_0.Buffer
	uniformMemory  []core1_0.DeviceMemory
}

func (f *frameState) destroy(d *Device) {
	if len(f.commandBuffers) > 0 {
		d.deviceDriver.FreeCommandBuffers(f.commandBuffers...)
		f.commandBuffers = nil
	}

	for _, buffer := range f.uniformBuffers {
		d.deviceDriver.DestroyBuffer(buffer, nil)
	}
	f.uniformBuffers = nil

	for _, memory := range f.uniformMemory {
		d.deviceDriver.FreeMemory(memory, nil)
	}
	f.uniformMemory = nil
}

// PrepareFrames rebuilds the per-image command buffers and uniform
// buffers for a freshly built framebuffer set.
func (d *Device) PrepareFrames(pass render.Handle, framebuffers []render.Handle, extent render.Extent) error {
	renderPass, ok := d.renderPasses.Get(pass)
	if !ok {
		return errors.New("prepare frames with dead render pass handle")
	}

	targets := make([]core1_0.Framebuffer, 0, len(framebuffers))
	for _, handle := range framebuffers {
		framebuffer, ok := d.framebuffers.Get(handle)
		if !ok {
			return errors.New("prepare frames with dead framebuffer handle")
		}
		targets = append(targets, framebuffer)
	}

	d.frames.destroy(d)

	uniformSize := binary.Size(UniformBufferObject{})
	for range targets {
		buffer, memory, err := d.createBuffer(uniformSize,
			core1_0.BufferUsageUniformBuffer,
			core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return err
		}
		d.frames.uniformBuffers = append(d.frames.uniformBuffers, buffer)
		d.frames.uniformMemory = append(d.frames.uniformMemory, memory)
	}

	buffers, _, err := d.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: len(targets),
	})
	if err != nil {
		return errors.Wrap(err, "allocate command buffers")
	}
	d.frames.commandBuffers = buffers

	for bufferIdx, buffer := range buffers {
		_, err = d.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
		if err != nil {
			return errors.Wrap(err, "begin command buffer")
		}

		err = d.deviceDriver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  renderPass,
				Framebuffer: targets[bufferIdx],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: toCoreExtent(extent),
				},
				ClearValues: []core1_0.ClearValue{
					core1_0.ClearValueFloat{0, 0, 0, 1},
					core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
				},
			})
		if err != nil {
			return errors.Wrap(err, "begin render pass")
		}

		// TODO: bind the material pipeline and record indexed draws here
		// once the shader module loader lands.
		for _, mesh := range d.scene.meshes {
			d.deviceDriver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{mesh.vertexBuffer}, []int{0})
			d.deviceDriver.CmdBindIndexBuffer(buffer, mesh.indexBuffer, 0, core1_0.IndexTypeUInt32)
		}

		d.deviceDriver.CmdEndRenderPass(buffer)

		_, err = d.deviceDriver.EndCommandBuffer(buffer)
		if err != nil {
			return errors.Wrap(err, "end command buffer")
		}
	}

	return nil
}

// Submit queues the command buffer recorded for the acquired image,
// waiting on the image-available semaphore before colour writes and
// signalling the render-finished semaphore and fence on completion.
func (d *Device) Submit(info render.SubmitInfo, fence render.Handle) error {
	if info.ImageIndex < 0 || info.ImageIndex >= len(d.frames.commandBuffers) {
		return errors.Newf("submit for image %d with %d command buffers recorded", info.ImageIndex, len(d.frames.commandBuffers))
	}

	wait, ok := d.semaphores.Get(info.WaitSemaphore)
	if !ok {
		return errors.New("submit with dead wait semaphore handle")
	}
	signal, ok := d.semaphores.Get(info.SignalSemaphore)
	if !ok {
		return errors.New("submit with dead signal semaphore handle")
	}
	submitFence, ok := d.fences.Get(fence)
	if !ok {
		return errors.New("submit with dead fence handle")
	}

	_, err := d.deviceDriver.QueueSubmit(d.graphicsQueue, &submitFence,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{wait},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{d.frames.commandBuffers[info.ImageIndex]},
			SignalSemaphores: []core1_0.Semaphore{signal},
		},
	)
	if err != nil {
		return errors.Wrap(err, "queue submit")
	}
	return nil
}

// UpdateUniforms writes the shader matrices for the acquired image.
func (d *Device) UpdateUniforms(imageIndex int, ubo UniformBufferObject) error {
	if imageIndex < 0 || imageIndex >= len(d.frames.uniformMemory) {
		return errors.Newf("uniform update for image %d with %d uniform buffers", imageIndex, len(d.frames.uniformMemory))
	}
	return d.writeData(d.frames.uniformMemory[imageIndex], 0, &ubo)
}

type meshBuffers struct {
	vertexBuffer core1_0.Buffer
	vertexMemory core1_0.DeviceMemory
	indexBuffer  core1_0.Buffer
	indexMemory  core1_0.DeviceMemory
	indexCount   int
}

type sceneBuffers struct {
	meshes []meshBuffers
}

// UploadScene pushes every built mesh in the scene into device-local
// vertex and index buffers, replacing any previously uploaded scene.
func (d *Device) UploadScene(scene *geometry.Scene) error {
	d.destroyScene()

	for _, object := range scene.Objects() {
		mesh := object.Mesh()
		if len(mesh.Indices) == 0 {
			return errors.Newf("object %q has no mesh, build the scene first", object.Name())
		}

		vertexBuffer, vertexMemory, err := d.createDeviceLocalBuffer(mesh.Vertices, core1_0.BufferUsageVertexBuffer)
		if err != nil {
			return errors.Wrapf(err, "upload vertices for %q", object.Name())
		}

		indexBuffer, indexMemory, err := d.createDeviceLocalBuffer(mesh.Indices, core1_0.BufferUsageIndexBuffer)
		if err != nil {
			d.deviceDriver.DestroyBuffer(vertexBuffer, nil)
			d.deviceDriver.FreeMemory(vertexMemory, nil)
			return errors.Wrapf(err, "upload indices for %q", object.Name())
		}

		d.scene.meshes = append(d.scene.meshes, meshBuffers{
			vertexBuffer: vertexBuffer,
			vertexMemory: vertexMemory,
			indexBuffer:  indexBuffer,
			indexMemory:  indexMemory,
			indexCount:   len(mesh.Indices),
		})
	}

	return nil
}

func (d *Device) destroyScene() {
	for _, mesh := range d.scene.meshes {
		d.deviceDriver.DestroyBuffer(mesh.vertexBuffer, nil)
		d.deviceDriver.FreeMemory(mesh.vertexMemory, nil)
		d.deviceDriver.DestroyBuffer(mesh.indexBuffer, nil)
		d.deviceDriver.FreeMemory(mesh.indexMemory, nil)
	}
	d.scene.meshes = nil
}

func (d *Device) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := d.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "create buffer")
	}

	memRequirements := d.deviceDriver.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := render.FindMemoryType(d.MemoryProperties(), memRequirements.MemoryTypeBits, fromCoreMemoryFlags(properties))
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := d.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "allocate buffer memory")
	}

	_, err = d.deviceDriver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		d.deviceDriver.FreeMemory(memory, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "bind buffer memory")
	}

	return buffer, memory, nil
}

// createDeviceLocalBuffer stages data through a host-visible buffer and
// copies it into device-local memory.
func (d *Device) createDeviceLocalBuffer(data any, usage core1_0.BufferUsageFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	bufferSize := binary.Size(data)

	stagingBuffer, stagingMemory, err := d.createBuffer(bufferSize,
		core1_0.BufferUsageTransferSrc,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}
	defer d.deviceDriver.DestroyBuffer(stagingBuffer, nil)
	defer d.deviceDriver.FreeMemory(stagingMemory, nil)

	err = d.writeData(stagingMemory, 0, data)
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	buffer, memory, err := d.createBuffer(bufferSize, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	err = d.copyBuffer(stagingBuffer, buffer, bufferSize)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		d.deviceDriver.FreeMemory(memory, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	return buffer, memory, nil
}

func (d *Device) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := d.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "allocate transfer command buffer")
	}

	buffer := buffers[0]
	_, err = d.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "begin transfer command buffer")
	}
	return buffer, nil
}

func (d *Device) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	_, err := d.deviceDriver.EndCommandBuffer(buffer)
	if err != nil {
		return errors.Wrap(err, "end transfer command buffer")
	}

	_, err = d.deviceDriver.QueueSubmit(d.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "submit transfer")
	}

	_, err = d.deviceDriver.QueueWaitIdle(d.graphicsQueue)
	if err != nil {
		return errors.Wrap(err, "wait for transfer")
	}

	d.deviceDriver.FreeCommandBuffers(buffer)
	return nil
}

func (d *Device) copyBuffer(srcBuffer, dstBuffer core1_0.Buffer, size int) error {
	buffer, err := d.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = d.deviceDriver.CmdCopyBuffer(buffer, srcBuffer, dstBuffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		return errors.Wrap(err, "copy buffer")
	}

	return d.endSingleTimeCommands(buffer)
}

func (d *Device) writeData(memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := d.deviceDriver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer d.deviceDriver.UnmapMemory(memory)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return errors.Wrap(err, "encode buffer data")
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}
