package selector

import (
	"math/bits"

	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type checkResult struct {
	score  int
	pass   bool
	family int
}

var deviceTypePreference = map[core1_0.PhysicalDeviceType]int{
	core1_0.PhysicalDeviceTypeDiscreteGPU:   5,
	core1_0.PhysicalDeviceTypeIntegratedGPU: 4,
	core1_0.PhysicalDeviceTypeVirtualGPU:    3,
	core1_0.PhysicalDeviceTypeCPU:           2,
	core1_0.PhysicalDeviceTypeOther:         1,
}

func checkDeviceType(candidate *Candidate, requirement *DeviceTypeRequirement, extraWeight int) (checkResult, SelectOption) {
	if requirement == nil {
		return checkResult{
			score:  deviceTypePreference[candidate.Type] * OptionImportant.weight(extraWeight),
			pass:   true,
			family: -1,
		}, OptionImportant
	}

	if candidate.Type != requirement.Type {
		return checkResult{pass: false, family: -1}, requirement.Option
	}

	return checkResult{
		score:  requirement.Option.weight(extraWeight),
		pass:   true,
		family: -1,
	}, requirement.Option
}

type extensionSet = swiss.Map[string, struct{}]

func requestedExtensions(names []string) *extensionSet {
	requested := swiss.NewMap[string, struct{}](uint32(len(names)))
	for _, name := range names {
		requested.Put(name, struct{}{})
	}
	return requested
}

func checkExtensions(candidate *Candidate, requested *extensionSet, option SelectOption, extraWeight int) checkResult {
	available := swiss.NewMap[string, struct{}](uint32(len(candidate.Extensions)))
	for _, name := range candidate.Extensions {
		available.Put(name, struct{}{})
	}

	matched := 0
	requested.Iter(func(name string, _ struct{}) bool {
		if available.Has(name) {
			matched++
		}
		return false
	})

	return checkResult{
		score:  matched * option.weight(extraWeight),
		pass:   option != OptionRequired || matched == requested.Count(),
		family: -1,
	}
}

// findGraphicsFamily returns the family matching the most requested capability bits, the lowest
// index winning ties, along with the number of matched bits. Families matching none of the bits
// are never chosen.
func findGraphicsFamily(candidate *Candidate, flags core1_0.QueueFlags) (int, int) {
	bestFamily := -1
	bestMatched := 0

	for index, family := range candidate.QueueFamilies {
		if family.Count <= 0 {
			continue
		}

		matched := bits.OnesCount32(uint32(family.Flags & flags))
		if matched > bestMatched {
			bestFamily = index
			bestMatched = matched
		}
	}

	return bestFamily, bestMatched
}

func checkGraphicsQueue(candidate *Candidate, requirement *QueueRequirement, extraWeight int) checkResult {
	flags := requirement.Flags | core1_0.QueueGraphics
	family, matched := findGraphicsFamily(candidate, flags)
	complete := family >= 0 && matched == bits.OnesCount32(uint32(flags))

	return checkResult{
		score:  matched * requirement.Option.weight(extraWeight),
		pass:   requirement.Option != OptionRequired || complete,
		family: family,
	}
}

func findPresentFamily(candidate *Candidate) int {
	for index, family := range candidate.QueueFamilies {
		if family.Count > 0 && family.Present {
			return index
		}
	}

	return -1
}

func checkPresentQueue(candidate *Candidate, requirement *PresentRequirement, extraWeight int) checkResult {
	family := findPresentFamily(candidate)
	if family < 0 {
		return checkResult{
			pass:   requirement.Option != OptionRequired,
			family: -1,
		}
	}

	return checkResult{
		score:  requirement.Option.weight(extraWeight),
		pass:   true,
		family: family,
	}
}
