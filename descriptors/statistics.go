package descriptors

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics is a snapshot of an Allocator's pool bookkeeping
type Statistics struct {
	ReadyPools    int
	FullPools     int
	PoolsCreated  int
	SetCapacity   int
	SetsAllocated int
	Retries       int
	SetsPerPool   int
}

func (s *Statistics) Clear() {
	s.ReadyPools = 0
	s.FullPools = 0
	s.PoolsCreated = 0
	s.SetCapacity = 0
	s.SetsAllocated = 0
	s.Retries = 0
	s.SetsPerPool = 0
}

func (s *Statistics) PoolCount() int {
	return s.ReadyPools + s.FullPools
}

// Statistics fills stats with the allocator's current state
func (a *Allocator) Statistics(stats *Statistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	stats.Clear()
	stats.ReadyPools = len(a.readyPools)
	stats.FullPools = len(a.fullPools)
	stats.PoolsCreated = a.poolsCreated
	stats.SetsAllocated = a.setsAllocated
	stats.Retries = a.retries
	stats.SetsPerPool = a.setsPerPool

	for _, pool := range a.readyPools {
		stats.SetCapacity += pool.maxSets
	}
	for _, pool := range a.fullPools {
		stats.SetCapacity += pool.maxSets
	}
}

// BuildStatsString returns a JSON document describing the allocator and each of its pools
func (a *Allocator) BuildStatsString() string {
	var stats Statistics
	a.Statistics(&stats)

	a.mutex.RLock()
	defer a.mutex.RUnlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	obj.Name("Flags").String(a.flags.String())

	totalObj := obj.Name("Total").Object()
	totalObj.Name("PoolCount").Int(stats.PoolCount())
	totalObj.Name("ReadyPools").Int(stats.ReadyPools)
	totalObj.Name("FullPools").Int(stats.FullPools)
	totalObj.Name("PoolsCreated").Int(stats.PoolsCreated)
	totalObj.Name("SetCapacity").Int(stats.SetCapacity)
	totalObj.Name("SetsAllocated").Int(stats.SetsAllocated)
	totalObj.Name("Retries").Int(stats.Retries)
	totalObj.Name("SetsPerPool").Int(stats.SetsPerPool)
	totalObj.End()

	pools := obj.Name("Pools").Array()
	a.printPools(&pools, a.readyPools)
	a.printPools(&pools, a.fullPools)
	pools.End()

	obj.End()

	return string(writer.Bytes())
}

func (a *Allocator) printPools(arr *jwriter.ArrayState, pools []*descriptorPool) {
	for _, pool := range pools {
		poolObj := arr.Object()
		poolObj.Name("ID").Int(pool.id)
		poolObj.Name("State").String(pool.state.String())
		poolObj.Name("MaxSets").Int(pool.maxSets)
		poolObj.Name("AllocatedSets").Int(pool.allocatedSets)
		poolObj.End()
	}
}
