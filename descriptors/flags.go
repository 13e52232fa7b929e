package descriptors

import "github.com/vkngwrapper/core/v2/common"

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that the allocator will not be synchronized internally.
	// The consumer must guarantee it is used from only one goroutine at a time or is synchronized
	// by some other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
}
