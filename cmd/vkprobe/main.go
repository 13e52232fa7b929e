// Command vkprobe runs accelerator selection against the system's Vulkan loader without opening
// a window and prints the selection report as JSON. Present support is not checked.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vkngwrapper/alcove/engine"
	"github.com/vkngwrapper/alcove/internal/vulkan"
	"github.com/vkngwrapper/alcove/selector"
	"github.com/vkngwrapper/core/v2"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON engine options file")
	deviceType := flag.String("type", "", "device type to request: discrete, integrated, virtual, cpu or other")
	typeOption := flag.String("type-option", "important", "weight of the device type request: required, important or optional")
	extensions := flag.String("extensions", "", "comma-separated device extensions to require in addition to the swapchain")
	validation := flag.Bool("validation", false, "enable the validation layer")
	verbose := flag.Bool("v", false, "log every evaluated candidate")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := probe(logger, *configPath, *deviceType, *typeOption, *extensions, *validation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vkprobe: %+v\n", err)
		os.Exit(1)
	}
}

func probe(logger *slog.Logger, configPath, deviceType, typeOption, extensions string, validation bool) error {
	var options engine.Options
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}

		options, err = engine.LoadOptions(data)
		if err != nil {
			return err
		}
	}

	if deviceType != "" {
		parsedType, err := selector.ParseDeviceType(deviceType)
		if err != nil {
			return err
		}
		option, err := selector.ParseSelectOption(typeOption)
		if err != nil {
			return err
		}
		options.DeviceType = &selector.DeviceTypeRequirement{Type: parsedType, Option: option}
	}
	if extensions != "" {
		options.DeviceExtensions = append(options.DeviceExtensions, strings.Split(extensions, ",")...)
	}
	options.Validation = options.Validation || validation

	criteria := options.Criteria()
	criteria.PresentQueue = nil

	loader, err := core.CreateSystemLoader()
	if err != nil {
		return err
	}

	instance, err := vulkan.CreateInstance(logger, loader, vulkan.InstanceOptions{
		ApplicationName: "vkprobe",
		Validation:      options.Validation,
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	selection, err := vulkan.SelectPhysicalDevice(logger, instance.Handle(), nil, criteria)
	if err != nil {
		return err
	}

	fmt.Println(selection.BuildReportString())
	return nil
}
