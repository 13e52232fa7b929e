package vulkan

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
)

// ValidationLayerName is the layer enabled when validation is requested
const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

// Loader is the portion of the system loader used to create an instance
type Loader interface {
	AvailableExtensions() (map[string]*core1_0.ExtensionProperties, common.VkResult, error)
	AvailableLayers() (map[string]*core1_0.LayerProperties, common.VkResult, error)
	CreateInstance(allocationCallbacks *driver.AllocationCallbacks, options core1_0.InstanceCreateInfo) (core1_0.Instance, common.VkResult, error)
}

type InstanceOptions struct {
	ApplicationName string
	// Extensions lists the instance extensions the window requires
	Extensions []string
	// Validation enables the Khronos validation layer and routes its messages to the logger
	Validation bool
}

// Instance is a created instance along with the debug messenger installed on it, if validation
// was requested
type Instance struct {
	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
}

// CreateInstance creates an instance with the requested extensions. The portability
// enumeration extension is enabled whenever the loader exposes it.
func CreateInstance(logger *slog.Logger, loader Loader, options InstanceOptions) (*Instance, error) {
	available, _, err := loader.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate instance extensions")
	}

	extensionNames := append([]string(nil), options.Extensions...)
	var flags core1_0.InstanceCreateFlags
	_, ok := available[khr_portability_enumeration.ExtensionName]
	if ok {
		extensionNames = append(extensionNames, khr_portability_enumeration.ExtensionName)
		flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	var layerNames []string
	var next common.NextOptions
	if options.Validation {
		extensionNames = append(extensionNames, ext_debug_utils.ExtensionName)
		layerNames = append(layerNames, ValidationLayerName)
		next = common.NextOptions{Next: debugMessengerCreateInfo(logger)}
	}

	instance, _, err := loader.CreateInstance(nil, core1_0.InstanceCreateInfo{
		ApplicationName:       options.ApplicationName,
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            "alcove",
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            common.Vulkan1_0,
		EnabledExtensionNames: extensionNames,
		EnabledLayerNames:     layerNames,
		Flags:                 flags,
		NextOptions:           next,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create instance")
	}

	created := &Instance{instance: instance}
	if options.Validation {
		debugLoader := ext_debug_utils.CreateExtensionFromInstance(instance)
		created.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(instance, nil, debugMessengerCreateInfo(logger))
		if err != nil {
			instance.Destroy(nil)
			return nil, errors.Wrap(err, "failed to create debug messenger")
		}
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "Instance created",
		slog.String("application", options.ApplicationName),
		slog.Any("extensions", extensionNames),
		slog.Bool("validation", options.Validation),
	)

	return created, nil
}

func debugMessengerCreateInfo(logger *slog.Logger) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback: func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
			level := slog.LevelWarn
			if severity&ext_debug_utils.SeverityError != 0 {
				level = slog.LevelError
			}

			logger.LogAttrs(context.Background(), level, data.Message,
				slog.String("type", msgType.String()),
				slog.String("severity", severity.String()),
			)
			return false
		},
	}
}

func (i *Instance) Handle() core1_0.Instance { return i.instance }

// Destroy destroys the debug messenger, if any, and then the instance
func (i *Instance) Destroy() {
	if i.debugMessenger != nil {
		i.debugMessenger.Destroy(nil)
	}
	i.instance.Destroy(nil)
}
