package vulkan

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/alcove/selector"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// QueryCandidates enumerates every physical device on instance and captures the properties the
// selector scores. When surface is nil, no queue family reports present support.
func QueryCandidates(instance core1_0.Instance, surface khr_surface.Surface) ([]*selector.Candidate, error) {
	physicalDevices, _, err := instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate physical devices")
	}

	candidates := make([]*selector.Candidate, 0, len(physicalDevices))
	for _, physicalDevice := range physicalDevices {
		candidate, err := queryCandidate(physicalDevice, surface)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func queryCandidate(physicalDevice core1_0.PhysicalDevice, surface khr_surface.Surface) (*selector.Candidate, error) {
	properties, err := physicalDevice.Properties()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query physical device properties")
	}

	extensions, _, err := physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to enumerate device extensions for %s", properties.DriverName)
	}
	extensionNames := maps.Keys(extensions)
	slices.Sort(extensionNames)

	candidate := &selector.Candidate{
		Device:     physicalDevice,
		Name:       properties.DriverName,
		Type:       properties.DriverType,
		Extensions: extensionNames,
	}

	for familyIndex, family := range physicalDevice.QueueFamilyProperties() {
		queueFamily := selector.QueueFamily{
			Flags: family.QueueFlags,
			Count: family.QueueCount,
		}

		if surface != nil {
			supported, _, err := surface.PhysicalDeviceSurfaceSupport(physicalDevice, familyIndex)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to query present support for family %d of %s", familyIndex, properties.DriverName)
			}
			queueFamily.Present = supported
		}

		candidate.QueueFamilies = append(candidate.QueueFamilies, queueFamily)
	}

	return candidate, nil
}

// SelectPhysicalDevice picks the accelerator on instance that best satisfies criteria, along
// with its graphics and present queue families
func SelectPhysicalDevice(logger *slog.Logger, instance core1_0.Instance, surface khr_surface.Surface, criteria selector.Criteria) (*selector.Selection, error) {
	candidates, err := QueryCandidates(instance, surface)
	if err != nil {
		return nil, err
	}

	return selector.Select(logger, candidates, criteria)
}
