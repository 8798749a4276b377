package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/oshokin/plutonium-manager/internal/config"
	"github.com/oshokin/plutonium-manager/internal/fetcher"
	"github.com/oshokin/plutonium-manager/internal/logger"
	"github.com/oshokin/plutonium-manager/internal/unpacker"
)

var (
	errInvalidLogLevel  = errors.New("invalid log level")
	errEmptyDestination = errors.New("destination must not be empty")
)

// Downloader is the subset of the fetcher used by the installer.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchToFile(ctx context.Context, url, path string) error
	FetchJSON(ctx context.Context, url string, v any) error
}

// Installer runs install requests against a catalog.
type Installer struct {
	// downloader performs every HTTP transfer.
	downloader Downloader
	// catalog holds the remote locations.
	catalog *Catalog
	// tempDir stages large archives before extraction.
	tempDir string
	// goos selects platform-specific release assets.
	goos string
	// runID names temporary files and tags log lines of this run.
	runID string
}

// Option customizes an Installer.
type Option func(*Installer)

// WithCatalog replaces the upstream catalog.
func WithCatalog(catalog *Catalog) Option {
	return func(i *Installer) {
		if catalog != nil {
			i.catalog = catalog
		}
	}
}

// WithTempDir sets the directory large archives are staged in.
func WithTempDir(dir string) Option {
	return func(i *Installer) {
		if dir != "" {
			i.tempDir = dir
		}
	}
}

// WithPlatform overrides the operating system used to pick release assets.
func WithPlatform(goos string) Option {
	return func(i *Installer) {
		if goos != "" {
			i.goos = goos
		}
	}
}

// New creates an Installer that downloads through d.
func New(d Downloader, options ...Option) *Installer {
	i := &Installer{
		downloader: d,
		catalog:    DefaultCatalog(),
		tempDir:    os.TempDir(),
		goos:       runtime.GOOS,
		runID:      uuid.NewString(),
	}

	for _, option := range options {
		option(i)
	}

	return i
}

// Run is the entry point for the CLI: it validates the request, loads settings,
// builds the shared fetcher and installs every requested target.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "plutonium-manager")

	requests, err := Plan(opts)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.SettingsPath)
	if err != nil {
		return err
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("%w: %s", errInvalidLogLevel, cfg.LogLevel)
	}

	logger.SetLevel(level)

	var fetcherOptions []fetcher.Option
	if cfg.ShowProgress() {
		fetcherOptions = append(fetcherOptions, fetcher.WithProgress(fetcher.BarProgress(os.Stderr)))
	}

	f := fetcher.New(ctx, fetcher.Options{
		UserAgent:   cfg.UserAgent,
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     cfg.Timeout,
	}, fetcherOptions...)

	return New(f, WithTempDir(cfg.TempDir)).Install(ctx, requests)
}

// Install resolves every request up front and then installs them in order.
// Nothing is downloaded when any request cannot be resolved.
func (i *Installer) Install(ctx context.Context, requests []Request) error {
	ctx = logger.WithKV(ctx, "run", i.runID)

	for _, r := range requests {
		if err := i.validate(r); err != nil {
			return fmt.Errorf("%s: %w", r.Target, err)
		}
	}

	for _, r := range requests {
		targetCtx := logger.WithFields(ctx, "target", r.Target.String(), "destination", r.Destination)

		logger.Infof(targetCtx, "Installing %s", r.Target)

		if err := i.install(targetCtx, r); err != nil {
			return fmt.Errorf("install %s: %w", r.Target, err)
		}

		logger.Infof(targetCtx, "Installed %s", r.Target)
	}

	return nil
}

// validate checks a request can be resolved without touching the network.
func (i *Installer) validate(r Request) error {
	if r.Destination == "" {
		return errEmptyDestination
	}

	switch r.Target {
	case TargetServerFiles:
		_, err := i.serverFilesURL(r)

		return err
	case TargetServerConfig:
		_, err := i.configURL(r)

		return err
	case TargetAdminPanel, TargetAdminPanelConfig, TargetLogServer, TargetLauncher, TargetRCONClient:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTarget, r.Target)
	}
}

func (i *Installer) install(ctx context.Context, r Request) error {
	switch r.Target {
	case TargetServerFiles:
		return i.installServerFiles(ctx, r)
	case TargetServerConfig:
		url, err := i.configURL(r)
		if err != nil {
			return err
		}

		return i.installZip(ctx, url, r.Destination)
	case TargetAdminPanel:
		url, err := i.latestReleaseAsset(ctx, i.catalog.AdminPanelReleaseURL)
		if err != nil {
			return err
		}

		return i.installZip(ctx, url, r.Destination)
	case TargetAdminPanelConfig:
		return i.installZip(ctx, i.catalog.AdminPanelConfigURL, r.Destination)
	case TargetLogServer:
		return i.installPlatformAsset(ctx, i.catalog.LogServer, r.Destination)
	case TargetLauncher:
		return i.installLauncher(ctx, r.Destination)
	case TargetRCONClient:
		return i.installPlatformAsset(ctx, i.catalog.RCONClient, r.Destination)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTarget, r.Target)
	}
}

func (i *Installer) serverFilesURL(r Request) (string, error) {
	if r.Engine == 0 {
		return "", ErrEngineRequired
	}

	return i.catalog.ServerFilesURL(r.Engine)
}

func (i *Installer) configURL(r Request) (string, error) {
	if r.Engine == 0 {
		return "", ErrEngineRequired
	}

	return i.catalog.ConfigURL(r.Engine)
}

// installServerFiles stages the large server bundle on disk, extracts it and removes the archive.
func (i *Installer) installServerFiles(ctx context.Context, r Request) error {
	url, err := i.serverFilesURL(r)
	if err != nil {
		return err
	}

	archive := filepath.Join(i.tempDir, "server-files-"+i.runID+".zip")

	defer func() {
		if removeErr := os.Remove(archive); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.WarnKV(ctx, "Could not remove temporary archive", "path", archive, "error", removeErr)
		}
	}()

	logger.DebugKV(ctx, "Staging server files", "path", archive)

	if err = i.downloader.FetchToFile(ctx, url, archive); err != nil {
		return err
	}

	return unpacker.ZipFile(archive, r.Destination, true)
}

// installZip downloads a zip archive into memory and extracts it without its wrapping folder.
func (i *Installer) installZip(ctx context.Context, url, dest string) error {
	data, err := i.downloader.Fetch(ctx, url)
	if err != nil {
		return err
	}

	return unpacker.ZipBytes(data, dest, true)
}

// installPlatformAsset downloads the build matching the current platform and extracts it.
func (i *Installer) installPlatformAsset(ctx context.Context, assets PlatformAssets, dest string) error {
	url, format := assets.For(i.goos)

	logger.DebugKV(ctx, "Selected release asset", "os", i.goos, "format", format.String(), "url", url)

	data, err := i.downloader.Fetch(ctx, url)
	if err != nil {
		return err
	}

	return unpacker.Extract(data, format, dest, format == unpacker.FormatZip)
}
