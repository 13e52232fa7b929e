package selector

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// ExtraWeight multiplies the partial score of REQUIRED and IMPORTANT checks so that they
// dominate OPTIONAL ones
const ExtraWeight = 0xFF

// SelectOption is the weight class of a single selection check
type SelectOption int

const (
	// OptionRequired checks eliminate a candidate when they fail
	OptionRequired SelectOption = iota
	// OptionImportant checks never eliminate, but their score is weighted by ExtraWeight
	OptionImportant
	// OptionOptional checks never eliminate and contribute their raw score
	OptionOptional
)

var selectOptionNames = map[SelectOption]string{
	OptionRequired:  "required",
	OptionImportant: "important",
	OptionOptional:  "optional",
}

func (o SelectOption) String() string {
	name, ok := selectOptionNames[o]
	if !ok {
		return "unknown"
	}
	return name
}

func (o SelectOption) weight(extraWeight int) int {
	if o == OptionOptional {
		return 1
	}
	return extraWeight
}

// ParseSelectOption converts "required", "important" or "optional" to a SelectOption
func ParseSelectOption(name string) (SelectOption, error) {
	for option, optionName := range selectOptionNames {
		if strings.EqualFold(name, optionName) {
			return option, nil
		}
	}
	return OptionRequired, errors.Newf("unknown select option %q", name)
}

var deviceTypeNames = map[core1_0.PhysicalDeviceType]string{
	core1_0.PhysicalDeviceTypeDiscreteGPU:   "discrete",
	core1_0.PhysicalDeviceTypeIntegratedGPU: "integrated",
	core1_0.PhysicalDeviceTypeVirtualGPU:    "virtual",
	core1_0.PhysicalDeviceTypeCPU:           "cpu",
	core1_0.PhysicalDeviceTypeOther:         "other",
}

// DeviceTypeName returns the short name used in reports and configuration for a device type
func DeviceTypeName(deviceType core1_0.PhysicalDeviceType) string {
	name, ok := deviceTypeNames[deviceType]
	if !ok {
		return "unknown"
	}
	return name
}

// ParseDeviceType converts "discrete", "integrated", "virtual", "cpu" or "other" to a device type
func ParseDeviceType(name string) (core1_0.PhysicalDeviceType, error) {
	for deviceType, typeName := range deviceTypeNames {
		if strings.EqualFold(name, typeName) {
			return deviceType, nil
		}
	}
	return core1_0.PhysicalDeviceTypeOther, errors.Newf("unknown device type %q", name)
}

var queueFlagNames = map[string]core1_0.QueueFlags{
	"graphics": core1_0.QueueGraphics,
	"compute":  core1_0.QueueCompute,
	"transfer": core1_0.QueueTransfer,
	"sparse":   core1_0.QueueSparseBinding,
}

// ParseQueueFlags combines capability names ("graphics", "compute", "transfer", "sparse") into
// a single set of queue flags
func ParseQueueFlags(names []string) (core1_0.QueueFlags, error) {
	var flags core1_0.QueueFlags
	for _, name := range names {
		flag, ok := queueFlagNames[strings.ToLower(name)]
		if !ok {
			return 0, errors.Newf("unknown queue capability %q", name)
		}
		flags |= flag
	}
	return flags, nil
}

// DeviceTypeRequirement requests one specific device type
type DeviceTypeRequirement struct {
	Type   core1_0.PhysicalDeviceType
	Option SelectOption
}

// QueueRequirement requests a queue family exposing a set of capabilities. The graphics
// capability is always added to Flags.
type QueueRequirement struct {
	Flags  core1_0.QueueFlags
	Option SelectOption
}

// PresentRequirement requests a queue family that can present to the target surface
type PresentRequirement struct {
	Option SelectOption
}

// Criteria is the full set of weighted constraints evaluated against every candidate.
//
// When DeviceType is nil, device types are scored by preference (discrete over integrated over
// virtual over cpu over other) as an IMPORTANT check. GraphicsQueue and PresentQueue are only
// checked when they are set. ExtraWeight defaults to the ExtraWeight constant when zero.
type Criteria struct {
	DeviceType       *DeviceTypeRequirement
	Extensions       []string
	ExtensionsOption SelectOption
	GraphicsQueue    *QueueRequirement
	PresentQueue     *PresentRequirement
	ExtraWeight      int
}

// DefaultCriteria requests graphics and present queue families and the provided device
// extensions, all REQUIRED, and prefers discrete devices
func DefaultCriteria(extensions ...string) Criteria {
	return Criteria{
		Extensions:       extensions,
		ExtensionsOption: OptionRequired,
		GraphicsQueue:    &QueueRequirement{Option: OptionRequired},
		PresentQueue:     &PresentRequirement{Option: OptionRequired},
	}
}

func (c Criteria) extraWeight() int {
	if c.ExtraWeight <= 0 {
		return ExtraWeight
	}
	return c.ExtraWeight
}
