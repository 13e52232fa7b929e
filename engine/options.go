package engine

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/vkngwrapper/alcove/descriptors"
	"github.com/vkngwrapper/alcove/frames"
	"github.com/vkngwrapper/alcove/selector"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

const (
	DefaultApplicationName = "alcove"
	// DefaultInitialDescriptorSets is the set count of the first global descriptor pool
	DefaultInitialDescriptorSets = 10
)

// Options configures an Engine. Zero values are replaced with defaults by New.
type Options struct {
	ApplicationName string

	// DeviceType requests a specific accelerator type. When nil, accelerators are ranked by
	// the default type preference.
	DeviceType *selector.DeviceTypeRequirement
	// DeviceExtensions are required in addition to the swapchain extension
	DeviceExtensions []string
	// GraphicsQueueFlags are capabilities the graphics queue family must have on top of
	// graphics
	GraphicsQueueFlags core1_0.QueueFlags
	ExtraWeight        int

	InitialDescriptorSets int
	DescriptorRatios      []descriptors.PoolSizeRatio

	FrameTimeout     time.Duration
	ImmediateTimeout time.Duration

	Validation bool
}

func (o *Options) fillDefaults() {
	if o.ApplicationName == "" {
		o.ApplicationName = DefaultApplicationName
	}
	if o.InitialDescriptorSets <= 0 {
		o.InitialDescriptorSets = DefaultInitialDescriptorSets
	}
	if len(o.DescriptorRatios) == 0 {
		o.DescriptorRatios = []descriptors.PoolSizeRatio{
			{Type: core1_0.DescriptorTypeStorageImage, Ratio: 1},
		}
	}
}

// Criteria builds the accelerator selection criteria. The swapchain extension and graphics and
// present queue families are always required.
func (o *Options) Criteria() selector.Criteria {
	extensions := append([]string{khr_swapchain.ExtensionName}, o.DeviceExtensions...)
	criteria := selector.DefaultCriteria(extensions...)
	criteria.DeviceType = o.DeviceType
	criteria.GraphicsQueue.Flags = o.GraphicsQueueFlags
	criteria.ExtraWeight = o.ExtraWeight

	return criteria
}

func (o *Options) pacerOptions() frames.Options {
	return frames.Options{
		FenceTimeout:     o.FrameTimeout,
		AcquireTimeout:   o.FrameTimeout,
		ImmediateTimeout: o.ImmediateTimeout,
	}
}

func (o *Options) descriptorOptions() descriptors.CreateOptions {
	return descriptors.CreateOptions{
		InitialSets: o.InitialDescriptorSets,
		Ratios:      o.DescriptorRatios,
	}
}

var descriptorTypeNames = map[string]core1_0.DescriptorType{
	"sampler":              core1_0.DescriptorTypeSampler,
	"combinedimagesampler": core1_0.DescriptorTypeCombinedImageSampler,
	"sampledimage":         core1_0.DescriptorTypeSampledImage,
	"storageimage":         core1_0.DescriptorTypeStorageImage,
	"uniformtexelbuffer":   core1_0.DescriptorTypeUniformTexelBuffer,
	"storagetexelbuffer":   core1_0.DescriptorTypeStorageTexelBuffer,
	"uniformbuffer":        core1_0.DescriptorTypeUniformBuffer,
	"storagebuffer":        core1_0.DescriptorTypeStorageBuffer,
	"uniformbufferdynamic": core1_0.DescriptorTypeUniformBufferDynamic,
	"storagebufferdynamic": core1_0.DescriptorTypeStorageBufferDynamic,
	"inputattachment":      core1_0.DescriptorTypeInputAttachment,
}

// ParseDescriptorType converts a descriptor type name such as "uniformBuffer" or
// "combinedImageSampler" to a descriptor type. Names are not case sensitive.
func ParseDescriptorType(name string) (core1_0.DescriptorType, error) {
	descriptorType, ok := descriptorTypeNames[strings.ToLower(name)]
	if !ok {
		return 0, errors.Newf("unknown descriptor type %q", name)
	}
	return descriptorType, nil
}

// LoadOptions parses a JSON options document. Keys that are not recognized are ignored.
func LoadOptions(data []byte) (Options, error) {
	var options Options
	var deviceType *core1_0.PhysicalDeviceType
	deviceTypeOption := selector.OptionImportant
	var queueFlags []string

	r := jreader.NewReader(data)
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "applicationName":
			options.ApplicationName = r.String()
		case "preferredDeviceType":
			parsed, err := selector.ParseDeviceType(r.String())
			if err != nil {
				r.AddError(err)
				continue
			}
			deviceType = &parsed
		case "deviceTypeOption":
			option, err := selector.ParseSelectOption(r.String())
			if err != nil {
				r.AddError(err)
				continue
			}
			deviceTypeOption = option
		case "deviceExtensions":
			for arr := r.Array(); arr.Next(); {
				options.DeviceExtensions = append(options.DeviceExtensions, r.String())
			}
		case "graphicsQueueFlags":
			for arr := r.Array(); arr.Next(); {
				queueFlags = append(queueFlags, r.String())
			}
		case "extraWeight":
			options.ExtraWeight = r.Int()
		case "initialDescriptorSets":
			options.InitialDescriptorSets = r.Int()
		case "descriptorRatios":
			for arr := r.Array(); arr.Next(); {
				ratio, err := readDescriptorRatio(&r)
				if err != nil {
					r.AddError(err)
					continue
				}
				options.DescriptorRatios = append(options.DescriptorRatios, ratio)
			}
		case "frameTimeoutMillis":
			options.FrameTimeout = time.Duration(r.Int()) * time.Millisecond
		case "immediateTimeoutMillis":
			options.ImmediateTimeout = time.Duration(r.Int()) * time.Millisecond
		case "validation":
			options.Validation = r.Bool()
		default:
			r.SkipValue()
		}
	}

	if err := r.Error(); err != nil {
		return Options{}, errors.Wrap(err, "failed to parse engine options")
	}

	flags, err := selector.ParseQueueFlags(queueFlags)
	if err != nil {
		return Options{}, errors.Wrap(err, "failed to parse engine options")
	}
	options.GraphicsQueueFlags = flags

	if deviceType != nil {
		options.DeviceType = &selector.DeviceTypeRequirement{
			Type:   *deviceType,
			Option: deviceTypeOption,
		}
	}

	return options, nil
}

func readDescriptorRatio(r *jreader.Reader) (descriptors.PoolSizeRatio, error) {
	var ratio descriptors.PoolSizeRatio
	var typeName string
	ratioSet := false

	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "type":
			typeName = r.String()
		case "ratio":
			ratio.Ratio = float32(r.Float64())
			ratioSet = true
		default:
			r.SkipValue()
		}
	}

	if !ratioSet {
		return ratio, errors.Newf("descriptor ratio for %q has no ratio", typeName)
	}

	descriptorType, err := ParseDescriptorType(typeName)
	if err != nil {
		return ratio, err
	}
	ratio.Type = descriptorType

	return ratio, nil
}
