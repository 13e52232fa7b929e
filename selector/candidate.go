package selector

import "github.com/vkngwrapper/core/v2/core1_0"

// QueueFamily is the queried description of one queue family on a candidate
type QueueFamily struct {
	Flags core1_0.QueueFlags
	Count int
	// Present is true when this family can present to the target surface
	Present bool
}

// Candidate is an accelerator and the properties queried from it. Candidates are enumerated
// once and never change afterward.
type Candidate struct {
	Device core1_0.PhysicalDevice

	Name          string
	Type          core1_0.PhysicalDeviceType
	Extensions    []string
	QueueFamilies []QueueFamily
}
