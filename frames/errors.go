package frames

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

var (
	// ErrDeviceLost is returned when a bounded wait times out or the device reports that it was
	// lost. The engine cannot continue after this.
	ErrDeviceLost = errors.New("device lost")
	// ErrDeviceCall is returned for any other failed device call
	ErrDeviceCall = errors.New("device call failed")
)

// IsDeviceLost reports whether res means the device can no longer be trusted to complete work
func IsDeviceLost(res common.VkResult) bool {
	return res == core1_0.VKTimeout || res == core1_0.VKErrorDeviceLost
}

// checkResult converts the outcome of a device call into a marked error, or nil if the call
// succeeded. Timeouts are reported by result rather than by error, so res is checked first.
func checkResult(res common.VkResult, err error, stage string) error {
	if IsDeviceLost(res) {
		if err == nil {
			err = errors.Newf("%s returned %v", stage, res)
		}
		return errors.Mark(errors.Wrap(err, stage), ErrDeviceLost)
	}

	if err != nil {
		return errors.Mark(errors.Wrap(err, stage), ErrDeviceCall)
	}

	return nil
}
