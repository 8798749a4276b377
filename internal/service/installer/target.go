package installer

import (
	"errors"
	"fmt"

	"github.com/oshokin/plutonium-manager/internal/domain/engine"
)

// Target is an installable component.
type Target uint8

// Targets in the order they are installed.
const (
	TargetServerFiles Target = iota + 1
	TargetServerConfig
	TargetAdminPanel
	TargetAdminPanelConfig
	TargetLogServer
	TargetLauncher
	TargetRCONClient
)

var (
	// ErrNothingToInstall is returned when no target was requested.
	ErrNothingToInstall = errors.New("nothing to install: pass at least one destination flag")
	// ErrEngineRequired is returned when a target that depends on the engine is requested without one.
	ErrEngineRequired = errors.New("an engine must be specified")
	// ErrUnknownTarget is returned for an unsupported Target value.
	ErrUnknownTarget = errors.New("unknown install target")
)

// String returns a human-readable target name.
func (t Target) String() string {
	switch t {
	case TargetServerFiles:
		return "server files"
	case TargetServerConfig:
		return "server config"
	case TargetAdminPanel:
		return "IW4M-Admin"
	case TargetAdminPanelConfig:
		return "IW4M-Admin config"
	case TargetLogServer:
		return "IW4M-Admin log server"
	case TargetLauncher:
		return "Plutonium launcher"
	case TargetRCONClient:
		return "RCON client"
	default:
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
}

// NeedsEngine reports whether the target URL depends on the engine.
func (t Target) NeedsEngine() bool {
	return t == TargetServerFiles || t == TargetServerConfig
}

// Request asks for one target to be installed at Destination.
type Request struct {
	// Target is the component to install.
	Target Target
	// Destination is a directory, or a file path for the launcher.
	Destination string
	// Engine selects the variant for targets that need one.
	Engine engine.Engine
}

// Options are inputs accepted by the installer entry point.
type Options struct {
	// SettingsPath is the optional path to the settings YAML file.
	SettingsPath string
	// LogLevel overrides the level from the settings file when set.
	LogLevel string
	// Engine is the engine name, required for server files and server config.
	Engine string
	// ServerDir receives the server files.
	ServerDir string
	// ConfigDir receives the server config.
	ConfigDir string
	// AdminPanelDir receives IW4M-Admin.
	AdminPanelDir string
	// AdminPanelConfigDir receives the IW4M-Admin configuration bundle.
	AdminPanelConfigDir string
	// LogServerDir receives the IW4M-Admin log server.
	LogServerDir string
	// LauncherPath is the file the Plutonium launcher is written to.
	LauncherPath string
	// RCONDir receives the RCON client.
	RCONDir string
}

// Plan turns options into ordered requests and checks usage errors.
func Plan(opts *Options) ([]Request, error) {
	destinations := []struct {
		target Target
		path   string
	}{
		{TargetServerFiles, opts.ServerDir},
		{TargetServerConfig, opts.ConfigDir},
		{TargetAdminPanel, opts.AdminPanelDir},
		{TargetAdminPanelConfig, opts.AdminPanelConfigDir},
		{TargetLogServer, opts.LogServerDir},
		{TargetLauncher, opts.LauncherPath},
		{TargetRCONClient, opts.RCONDir},
	}

	var selected engine.Engine

	if opts.Engine != "" {
		var err error

		selected, err = engine.Parse(opts.Engine)
		if err != nil {
			return nil, err
		}
	}

	requests := make([]Request, 0, len(destinations))

	for _, d := range destinations {
		if d.path == "" {
			continue
		}

		if d.target.NeedsEngine() && selected == 0 {
			return nil, fmt.Errorf("%w to install %s (one of %v)", ErrEngineRequired, d.target, engine.Names())
		}

		requests = append(requests, Request{
			Target:      d.target,
			Destination: d.path,
			Engine:      selected,
		})
	}

	if len(requests) == 0 {
		return nil, ErrNothingToInstall
	}

	return requests, nil
}
