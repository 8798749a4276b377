package installer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"

	"github.com/oshokin/plutonium-manager/internal/logger"
)

const (
	// LauncherFileMode is applied to the written launcher binary.
	LauncherFileMode os.FileMode = 0o755

	// dirPermissions is used for the launcher's parent directory.
	dirPermissions = 0o755
)

// installLauncher downloads the launcher and swaps it into place at path.
func (i *Installer) installLauncher(ctx context.Context, path string) error {
	data, err := i.downloader.Fetch(ctx, i.catalog.LauncherURL)
	if err != nil {
		return err
	}

	return writeLauncher(ctx, path, data)
}

// writeLauncher replaces the file at path with data. The swap is atomic: either the
// old binary or the new one is in place, never a partial write.
func writeLauncher(ctx context.Context, path string, data []byte) error {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	warnIfRunning(ctx, filepath.Base(path))

	// go-update renames the current file away first, so it has to exist.
	created := false

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, LauncherFileMode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}

		_ = placeholder.Close()
		created = true
	}

	checksum := sha512.Sum512(data)

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: LauncherFileMode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA512,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(path)
		}

		return fmt.Errorf("write launcher %s: %w", path, err)
	}

	// Left behind when the previous binary was still running.
	oldPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".old")
	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	logger.DebugKV(ctx, "Launcher written", "path", path, "bytes", len(data))

	return nil
}

// warnIfRunning logs a warning when a process with the launcher's name is running.
func warnIfRunning(ctx context.Context, executable string) {
	processes, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Could not list processes", "error", err)

		return
	}

	for _, process := range processes {
		if strings.EqualFold(process.Executable(), executable) {
			logger.WarnKV(ctx, "Launcher is running and may block the update",
				"executable", executable, "pid", process.Pid())

			return
		}
	}
}
