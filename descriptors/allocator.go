package descriptors

import (
	"context"
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/alcove/internal/utils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

const (
	// GrowthRate is the factor applied to the sets-per-pool target each time a new pool has to
	// be created because no pool was ready
	GrowthRate float64 = 1.5
	// MaxSetsPerPool caps the sets-per-pool target
	MaxSetsPerPool int = 4092
)

// CreateOptions contains the settings used to build an Allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// InitialSets is the number of sets the first pool can allocate. It must be positive.
	InitialSets int
	// Ratios describes the proportion of each descriptor type in every pool, relative to
	// the pool's set count
	Ratios []PoolSizeRatio
}

// Allocator hands out descriptor sets from a growing list of fixed-capacity pools. Pools that
// run out of room are parked on a full list until ResetPools recycles them, and new pools are
// created with a geometrically growing set count so that neither one oversized pool nor one
// pool per allocation is needed.
type Allocator struct {
	logger *slog.Logger
	device Device
	flags  CreateFlags
	ratios []PoolSizeRatio

	mutex utils.OptionalRWMutex

	initialSets  int
	setsPerPool  int
	poolsCreated int
	nextPoolID   int

	readyPools []*descriptorPool
	fullPools  []*descriptorPool

	setsAllocated int
	retries       int
}

// New creates an Allocator and its first pool, sized at options.InitialSets
func New(logger *slog.Logger, device Device, options CreateOptions) (*Allocator, error) {
	if options.InitialSets <= 0 {
		return nil, errors.Wrapf(ErrInvalidRatios, "InitialSets must be positive, but was %d", options.InitialSets)
	}

	// Validate the ratio table once up front so pool creation can only fail on the device
	_, err := PoolSizes(options.InitialSets, options.Ratios)
	if err != nil {
		return nil, err
	}

	allocator := &Allocator{
		logger:      logger,
		device:      device,
		flags:       options.Flags,
		ratios:      append([]PoolSizeRatio(nil), options.Ratios...),
		initialSets: options.InitialSets,
		setsPerPool: options.InitialSets,
		mutex: utils.OptionalRWMutex{
			Disabled: options.Flags&CreateExternallySynchronized != 0,
		},
	}

	pool, _, err := allocator.createPool()
	if err != nil {
		return nil, err
	}
	allocator.readyPools = append(allocator.readyPools, pool)

	return allocator, nil
}

// SetsPerPool is the number of sets the next newly-created pool will be able to allocate
func (a *Allocator) SetsPerPool() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.setsPerPool
}

// Allocate returns a descriptor set for the provided layout. If the pool it tries reports that it
// is out of pool memory or fragmented, that pool is marked full and the allocation is retried
// exactly once against another pool, creating one if necessary. Any other failure, or a failed
// retry, is returned as an error the engine cannot recover from.
func (a *Allocator) Allocate(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, common.VkResult, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer utils.DebugValidate(a)

	pool, res, err := a.grabPool()
	if err != nil {
		return nil, res, err
	}

	set, res, err := pool.Allocate(layout)
	if err != nil && IsExhaustion(res) {
		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Allocate pool full, retrying",
			slog.Int("pool.id", pool.id),
			slog.Int("pool.sets", pool.allocatedSets),
			slog.Any("result", res),
		)
		a.markFull(pool)
		a.retries++

		pool, res, err = a.grabPool()
		if err != nil {
			return nil, res, err
		}

		set, res, err = pool.Allocate(layout)
		if err != nil {
			if IsExhaustion(res) {
				a.markFull(pool)
				return nil, res, errors.Mark(errors.Wrapf(err, "descriptor set allocation failed after retrying with pool %d", pool.id), ErrPoolExhausted)
			}

			a.readyPools = append(a.readyPools, pool)
			return nil, res, errors.Mark(errors.Wrapf(err, "descriptor set allocation failed on pool %d", pool.id), ErrDeviceCall)
		}
	} else if err != nil {
		a.readyPools = append(a.readyPools, pool)
		return nil, res, errors.Mark(errors.Wrapf(err, "descriptor set allocation failed on pool %d", pool.id), ErrDeviceCall)
	}

	a.setsAllocated++
	a.readyPools = append(a.readyPools, pool)
	return set, res, nil
}

// ResetPools resets every pool, full or not, and moves all of them back to the ready list. Every
// set previously allocated from this allocator becomes invalid.
func (a *Allocator) ResetPools() (common.VkResult, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	defer utils.DebugValidate(a)

	pools := make([]*descriptorPool, 0, len(a.readyPools)+len(a.fullPools))
	pools = append(pools, a.readyPools...)
	pools = append(pools, a.fullPools...)

	a.readyPools = a.readyPools[:0]
	a.fullPools = a.fullPools[:0]

	var firstErr error
	var firstRes common.VkResult = core1_0.VKSuccess
	for _, pool := range pools {
		res, err := pool.Reset()
		if err != nil && firstErr == nil {
			firstErr = errors.Mark(err, ErrDeviceCall)
			firstRes = res
		}

		// A pool that failed to reset is still owned here so DestroyPools can release it
		if err != nil {
			pool.state = poolFull
			a.fullPools = append(a.fullPools, pool)
			continue
		}
		a.readyPools = append(a.readyPools, pool)
	}

	a.setsAllocated = 0
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::ResetPools",
		slog.Int("pools", len(pools)),
	)

	return firstRes, firstErr
}

// DestroyPools releases every pool unconditionally and empties both pool lists. The allocator
// may still be used afterward, in which case it will create new pools at the current
// sets-per-pool target.
func (a *Allocator) DestroyPools() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, pool := range a.readyPools {
		pool.Destroy()
	}
	for _, pool := range a.fullPools {
		pool.Destroy()
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::DestroyPools",
		slog.Int("pools", len(a.readyPools)+len(a.fullPools)),
	)

	a.readyPools = nil
	a.fullPools = nil
	a.setsAllocated = 0
}

// Destroy is an alias of DestroyPools so the allocator can be queued on a release.Queue
func (a *Allocator) Destroy() {
	a.DestroyPools()
}

func (a *Allocator) grabPool() (*descriptorPool, common.VkResult, error) {
	if len(a.readyPools) > 0 {
		last := len(a.readyPools) - 1
		pool := a.readyPools[last]
		a.readyPools[last] = nil
		a.readyPools = a.readyPools[:last]
		return pool, core1_0.VKSuccess, nil
	}

	return a.createPool()
}

// createPool builds a pool at the current sets-per-pool target, then grows the target for
// the next creation
func (a *Allocator) createPool() (*descriptorPool, common.VkResult, error) {
	maxSets := a.setsPerPool
	sizes, err := PoolSizes(maxSets, a.ratios)
	if err != nil {
		return nil, core1_0.VKErrorUnknown, err
	}

	handle, res, err := a.device.CreatePool(maxSets, sizes)
	if err != nil {
		return nil, res, errors.Mark(errors.Wrapf(err, "failed to create a descriptor pool with %d sets", maxSets), ErrDeviceCall)
	}

	pool := &descriptorPool{
		id:      a.nextPoolID,
		maxSets: maxSets,
		state:   poolReady,
		handle:  handle,
	}
	a.nextPoolID++
	a.poolsCreated++
	a.setsPerPool = GrowSetsPerPool(a.initialSets, a.poolsCreated)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::createPool",
		slog.Int("pool.id", pool.id),
		slog.Int("pool.maxSets", maxSets),
		slog.Int("nextSetsPerPool", a.setsPerPool),
	)

	return pool, res, nil
}

func (a *Allocator) markFull(pool *descriptorPool) {
	pool.state = poolFull
	a.fullPools = append(a.fullPools, pool)
}

// GrowSetsPerPool returns the sets-per-pool target after poolsCreated pool creations, starting
// from initialSets: min(MaxSetsPerPool, round(initialSets * GrowthRate^poolsCreated))
func GrowSetsPerPool(initialSets int, poolsCreated int) int {
	target := math.Round(float64(initialSets) * math.Pow(GrowthRate, float64(poolsCreated)))
	if target > float64(MaxSetsPerPool) {
		return MaxSetsPerPool
	}

	return int(target)
}

// Validate checks that the ready and full lists are consistent with each pool's state
func (a *Allocator) Validate() error {
	seen := make(map[*descriptorPool]struct{}, len(a.readyPools)+len(a.fullPools))

	for _, pool := range a.readyPools {
		if pool.state != poolReady {
			return errors.Newf("pool %d is on the ready list in state %s", pool.id, pool.state)
		}
		if _, ok := seen[pool]; ok {
			return errors.Newf("pool %d appears on the pool lists more than once", pool.id)
		}
		seen[pool] = struct{}{}
	}

	for _, pool := range a.fullPools {
		if pool.state != poolFull {
			return errors.Newf("pool %d is on the full list in state %s", pool.id, pool.state)
		}
		if _, ok := seen[pool]; ok {
			return errors.Newf("pool %d appears on the pool lists more than once", pool.id)
		}
		seen[pool] = struct{}{}
	}

	return nil
}
