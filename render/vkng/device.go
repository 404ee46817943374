// Package vkng implements the render.Device capability surface on top
// of Vulkan through the vkngwrapper bindings.
package vkng

import (
	"log"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"

	"github.com/wave-render/wave/render"
	"github.com/wave-render/wave/window"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// Config parameterizes backend creation.
type Config struct {
	Window  *window.Window
	AppName string

	// Debug enables the Khronos validation layer and a debug messenger
	// that forwards validation output to the process log.
	Debug bool
}

// Device is the Vulkan implementation of render.Device. Backend objects
// are stored in generational tables and referred to by render.Handle, so
// a stale handle fails lookup instead of reaching freed driver memory.
type Device struct {
	window *window.Window
	debug  bool

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver    ext_debug_utils.ExtensionDriver
	debugMessenger ext_debug_utils.DebugUtilsMessenger

	surfaceExtension   khr_surface.ExtensionDriver
	surface            khr_surface.Surface
	swapchainExtension khr_swapchain.ExtensionDriver

	physicalDevice core1_0.PhysicalDevice
	graphicsFamily int
	presentFamily  int
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue
	msaaSamples    core1_0.SampleCountFlags

	commandPool core1_0.CommandPool

	swapchains   render.Table[*swapchainState]
	images       render.Table[core1_0.Image]
	views        render.Table[core1_0.ImageView]
	memories     render.Table[core1_0.DeviceMemory]
	renderPasses render.Table[core1_0.RenderPass]
	framebuffers render.Table[core1_0.Framebuffer]
	semaphores   render.Table[core1_0.Semaphore]
	fences       render.Table[core1_0.Fence]

	frames frameState
	scene  sceneBuffers
}

var _ render.Device = (*Device)(nil)

// New brings up the Vulkan instance, picks a physical device that can
// present to the window's surface, and creates the logical device and
// command pool.
func New(config Config) (*Device, error) {
	d := &Device{
		window:      config.Window,
		debug:       config.Debug,
		msaaSamples: core1_0.Samples1,
	}

	var err error
	d.globalDriver, err = core.CreateDriverFromProcAddr(config.Window.ProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "create vulkan driver")
	}

	if err := d.createInstance(config.AppName); err != nil {
		return nil, err
	}

	if err := d.setupDebugMessenger(); err != nil {
		d.Destroy()
		return nil, err
	}

	d.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(d.instanceDriver)
	d.surface, err = config.Window.CreateSurface(d.instanceDriver.Instance(), d.surfaceExtension)
	if err != nil {
		d.Destroy()
		return nil, err
	}

	if err := d.pickPhysicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}

	if err := d.createLogicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}

	d.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(d.deviceDriver)

	d.commandPool, _, err = d.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: d.graphicsFamily,
	})
	if err != nil {
		d.Destroy()
		return nil, errors.Wrap(err, "create command pool")
	}

	return d, nil
}

func (d *Device) createInstance(appName string) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    appName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "wave",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := d.window.InstanceExtensions()
	extensions, _, err := d.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range sdlExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("missing required instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if d.debug {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if d.debug {
		layers, _, err := d.globalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}

		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Newf("validation layer %s not available, install the LunarG Vulkan SDK", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		instanceOptions.Next = d.debugMessengerOptions()
	}

	d.instanceDriver, _, err = d.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "create instance")
	}

	return nil
}

func (d *Device) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func (d *Device) setupDebugMessenger() error {
	if !d.debug {
		return nil
	}

	var err error
	d.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(d.instanceDriver)
	d.debugMessenger, _, err = d.debugDriver.CreateDebugUtilsMessenger(nil, d.debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "create debug messenger")
	}

	return nil
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	log.Printf("[%s %s] - %s", severity, msgType, data.Message)
	return false
}

type queueFamilyIndices struct {
	graphicsFamily *int
	presentFamily  *int
}

func (i *queueFamilyIndices) isComplete() bool {
	return i.graphicsFamily != nil && i.presentFamily != nil
}

func (d *Device) findQueueFamilies(device core1_0.PhysicalDevice) (queueFamilyIndices, error) {
	indices := queueFamilyIndices{}
	queueFamilies := d.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.graphicsFamily = new(int)
			*indices.graphicsFamily = queueFamilyIdx
		}

		supported, _, err := d.surfaceExtension.GetPhysicalDeviceSurfaceSupport(d.surface, device, queueFamilyIdx)
		if err != nil {
			return indices, err
		}

		if supported {
			indices.presentFamily = new(int)
			*indices.presentFamily = queueFamilyIdx
		}

		if indices.isComplete() {
			break
		}
	}

	return indices, nil
}

func (d *Device) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := d.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (d *Device) isDeviceSuitable(device core1_0.PhysicalDevice) bool {
	indices, err := d.findQueueFamilies(device)
	if err != nil {
		return false
	}

	if !d.checkDeviceExtensionSupport(device) {
		return false
	}

	formats, _, err := d.surfaceExtension.GetPhysicalDeviceSurfaceFormats(d.surface, device)
	if err != nil || len(formats) == 0 {
		return false
	}

	presentModes, _, err := d.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(d.surface, device)
	if err != nil || len(presentModes) == 0 {
		return false
	}

	features := d.instanceDriver.GetPhysicalDeviceFeatures(device)
	return indices.isComplete() && features.SamplerAnisotropy
}

func (d *Device) pickPhysicalDevice() error {
	physicalDevices, _, err := d.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	for _, device := range physicalDevices {
		if d.isDeviceSuitable(device) {
			d.physicalDevice = device
			d.msaaSamples, err = d.maxUsableSampleCount()
			if err != nil {
				return err
			}
			break
		}
	}

	if !d.physicalDevice.Initialized() {
		return errors.New("no suitable gpu found")
	}

	return nil
}

func (d *Device) maxUsableSampleCount() (core1_0.SampleCountFlags, error) {
	properties, err := d.instanceDriver.GetPhysicalDeviceProperties(d.physicalDevice)
	if err != nil {
		return 0, err
	}

	counts := properties.Limits.FramebufferColorSampleCounts & properties.Limits.FramebufferDepthSampleCounts

	for _, candidate := range []core1_0.SampleCountFlags{
		core1_0.Samples64, core1_0.Samples32, core1_0.Samples16,
		core1_0.Samples8, core1_0.Samples4, core1_0.Samples2,
	} {
		if (counts & candidate) != 0 {
			return candidate, nil
		}
	}
	return core1_0.Samples1, nil
}

func (d *Device) createLogicalDevice() error {
	indices, err := d.findQueueFamilies(d.physicalDevice)
	if err != nil {
		return err
	}
	d.graphicsFamily = *indices.graphicsFamily
	d.presentFamily = *indices.presentFamily

	uniqueQueueFamilies := []int{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, d.presentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Needed to run on top of vulkan portability, e.g. MoltenVK on mac.
	extensions, _, err := d.instanceDriver.EnumerateDeviceExtensionProperties(d.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "enumerate device extensions")
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	d.deviceDriver, _, err = d.instanceDriver.CreateDevice(d.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	d.graphicsQueue = d.deviceDriver.GetQueue(d.graphicsFamily, 0)
	d.presentQueue = d.deviceDriver.GetQueue(d.presentFamily, 0)
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	_, err := d.deviceDriver.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "device wait idle")
	}
	return nil
}

// MemoryProperties returns the device memory types in driver order.
func (d *Device) MemoryProperties() render.MemoryProperties {
	memProperties := d.instanceDriver.GetPhysicalDeviceMemoryProperties(d.physicalDevice)

	props := render.MemoryProperties{
		Types: make([]render.MemoryType, 0, len(memProperties.MemoryTypes)),
	}
	for _, memoryType := range memProperties.MemoryTypes {
		props.Types = append(props.Types, render.MemoryType{
			PropertyFlags: fromCoreMemoryFlags(memoryType.PropertyFlags),
		})
	}
	return props
}

// DepthFormat picks the first depth format the device supports for
// optimal-tiling depth attachments.
func (d *Device) DepthFormat() (render.Format, error) {
	candidates := []core1_0.Format{
		core1_0.FormatD32SignedFloat,
		core1_0.FormatD32SignedFloatS8UnsignedInt,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
	}

	for _, format := range candidates {
		props := d.instanceDriver.GetPhysicalDeviceFormatProperties(d.physicalDevice, format)
		if (props.OptimalTilingFeatures & core1_0.FormatFeatureDepthStencilAttachment) == core1_0.FormatFeatureDepthStencilAttachment {
			return fromCoreFormat(format), nil
		}
	}

	return render.FormatUndefined, errors.New("no supported depth attachment format")
}

// SampleCount is the MSAA sample count used for render targets.
func (d *Device) SampleCount() int {
	return fromSampleFlags(d.msaaSamples)
}

// Destroy tears down everything the backend owns. The frame-sync core
// must have destroyed its handles first.
func (d *Device) Destroy() {
	if d.deviceDriver != nil {
		d.deviceDriver.DeviceWaitIdle()

		d.destroyScene()
		d.frames.destroy(d)

		if d.commandPool.Initialized() {
			d.deviceDriver.DestroyCommandPool(d.commandPool, nil)
			d.commandPool = core1_0.CommandPool{}
		}

		d.deviceDriver.DestroyDevice(nil)
		d.deviceDriver = nil
	}

	if d.debugMessenger.Initialized() {
		d.debugDriver.DestroyDebugUtilsMessenger(d.debugMessenger, nil)
		d.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if d.surface.Initialized() {
		d.surfaceExtension.DestroySurface(d.surface, nil)
		d.surface = khr_surface.Surface{}
	}

	if d.instanceDriver != nil {
		d.instanceDriver.DestroyInstance(nil)
		d.instanceDriver = nil
	}
}
