package installer

import (
	"github.com/oshokin/plutonium-manager/internal/domain/engine"
	"github.com/oshokin/plutonium-manager/internal/unpacker"
)

const (
	// adminPanelReleaseURL is the releases API endpoint of IW4M-Admin.
	adminPanelReleaseURL = "https://api.github.com/repos/RaidMax/IW4M-Admin/releases/latest"

	// adminPanelConfigURL is the community configuration bundle for IW4M-Admin.
	adminPanelConfigURL = "https://cdn.discordapp.com/attachments/749611171216359474/1108504949836496996/Configuration.zip"

	// launcherURL is the Plutonium updater binary.
	launcherURL = "https://cdn.plutonium.pw/updater/plutonium.exe"

	logServerReleaseURL = "https://github.com/Stefanuk12/iw4m-log-server/releases/latest/download/iw4m-log-server-"
	rconReleaseURL      = "https://github.com/Stefanuk12/cod-rcon/releases/latest/download/cod-rcon-"

	unixTriple    = "x86_64-unknown-linux-gnu"
	windowsTriple = "x86_64-pc-windows-msvc"
)

// Catalog holds every remote location the installer downloads from.
type Catalog struct {
	// ServerFilesURL resolves the server file bundle of an engine.
	ServerFilesURL func(engine.Engine) (string, error)
	// ConfigURL resolves the server config bundle of an engine.
	ConfigURL func(engine.Engine) (string, error)
	// AdminPanelReleaseURL returns JSON describing the latest admin panel release.
	AdminPanelReleaseURL string
	// AdminPanelConfigURL is the admin panel configuration bundle.
	AdminPanelConfigURL string
	// LogServer is the admin panel log server release.
	LogServer PlatformAssets
	// RCONClient is the RCON client release.
	RCONClient PlatformAssets
	// LauncherURL is the raw launcher binary.
	LauncherURL string
}

// PlatformAssets are the per-platform builds of one release.
type PlatformAssets struct {
	// Unix is a gzip-compressed tar archive.
	Unix string
	// Windows is a zip archive.
	Windows string
}

// For picks the asset and its format for goos. Windows gets the zip, everything else the tarball.
func (a PlatformAssets) For(goos string) (string, unpacker.Format) {
	if goos == "windows" {
		return a.Windows, unpacker.FormatZip
	}

	return a.Unix, unpacker.FormatTarGz
}

// DefaultCatalog returns the upstream locations.
func DefaultCatalog() *Catalog {
	return &Catalog{
		ServerFilesURL:       engine.Engine.ServerFilesURL,
		ConfigURL:            engine.Engine.ConfigURL,
		AdminPanelReleaseURL: adminPanelReleaseURL,
		AdminPanelConfigURL:  adminPanelConfigURL,
		LogServer:            releaseAssets(logServerReleaseURL),
		RCONClient:           releaseAssets(rconReleaseURL),
		LauncherURL:          launcherURL,
	}
}

func releaseAssets(prefix string) PlatformAssets {
	return PlatformAssets{
		Unix:    prefix + unixTriple + ".tar.gz",
		Windows: prefix + windowsTriple + ".zip",
	}
}
