package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to import the C code

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/geoshape/extension/internal/app"
	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/internal/dispatcher"
	"github.com/geoshape/extension/internal/logging"
	"github.com/geoshape/extension/pkg/a3interface"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.1.0"
	BuildDate               string = "unknown"

	ExtensionName string = "geoshape"
)

var (
	// ModulePath is the absolute path to this library file.
	ModulePath string

	// AddonFolder holds the config file. It is the folder the library was
	// loaded from.
	AddonFolder string

	session *app.App
	Logger  *slog.Logger
)

// init is run automatically when the module is loaded
func init() {
	ModulePath = a3interface.GetModulePath()
	AddonFolder = filepath.Dir(ModulePath)
	a3interface.SetVersion(CurrentExtensionVersion)

	// temporary logger until the session log file exists
	early := logging.NewSlogManager()
	early.Setup(nil, "info", nil)
	Logger = early.Logger()

	if err := config.Load(AddonFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err, "dir", AddonFolder)
	}

	var err error
	session, err = app.Start(context.Background(), app.Options{
		Name:      ExtensionName,
		Version:   CurrentExtensionVersion,
		BuildDate: BuildDate,
	})
	if err != nil {
		Logger.Error("Failed to start session", "error", err)
		return
	}
	Logger = session.Logger

	registerLifecycleHandlers(session.Dispatcher)
	a3interface.SetDispatcher(session.Dispatcher)
	Logger.Info("Extension loaded", "module", ModulePath, "commands", len(session.Dispatcher.Commands()))
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		return "ok", nil
	})

	d.Register(":GETDIR:MODULE:", func(e dispatcher.Event) (any, error) {
		return ModulePath, nil
	})

	d.Register(":SHUTDOWN:", func(e dispatcher.Event) (any, error) {
		go shutdown()
		return "ok", nil
	})
}

func shutdown() {
	if session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a3interface.SetDispatcher(nil)
	if err := session.Close(ctx); err != nil {
		Logger.Error("Failed to close session", "error", err)
	}
	session = nil
}

// main runs when built as an executable. Each stdin line is handled like a
// host call ("command|arg|arg") and the response is printed.
func main() {
	defer shutdown()

	if len(os.Args) > 1 && strings.ToLower(os.Args[1]) == "version" {
		fmt.Println(CurrentExtensionVersion, BuildDate)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			return
		}
		fmt.Println(a3interface.Call(line))
	}
}
