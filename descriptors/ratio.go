package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/alcove/internal/utils"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// PoolSizeRatio describes how many descriptors of a single type a pool should hold, relative
// to the number of sets it can allocate. A ratio of 0.8 for uniform buffers in a pool of 10 sets
// reserves room for 8 uniform buffer descriptors.
type PoolSizeRatio struct {
	Type  core1_0.DescriptorType
	Ratio float32
}

// PoolSizes expands a ratio table into the per-type descriptor counts for a pool of maxSets sets
func PoolSizes(maxSets int, ratios []PoolSizeRatio) ([]core1_0.DescriptorPoolSize, error) {
	if maxSets <= 0 {
		return nil, errors.Wrapf(ErrInvalidRatios, "maxSets must be positive, but was %d", maxSets)
	}
	if len(ratios) == 0 {
		return nil, errors.Wrap(ErrInvalidRatios, "at least one pool size ratio must be provided")
	}

	sizes := make([]core1_0.DescriptorPoolSize, 0, len(ratios))
	total := 0
	for _, ratio := range ratios {
		if ratio.Ratio < 0 {
			return nil, errors.Wrapf(ErrInvalidRatios, "ratio for %v is negative: %f", ratio.Type, ratio.Ratio)
		}

		count := int(ratio.Ratio * float32(maxSets))
		sizes = append(sizes, core1_0.DescriptorPoolSize{
			Type:            ratio.Type,
			DescriptorCount: count,
		})
		total += count
	}

	if utils.DebugEnabled && total > maxSets {
		return nil, errors.Wrapf(ErrInvalidRatios, "pool ratios request %d descriptors for %d sets", total, maxSets)
	}

	return sizes, nil
}
