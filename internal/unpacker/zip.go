package unpacker

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// maxSymlinkTarget caps how much of a zip symlink entry is read as its target.
const maxSymlinkTarget = 4096

// ZipBytes extracts an in-memory zip archive into dest.
func ZipBytes(data []byte, dest string, stripRoot bool) error {
	return Zip(bytes.NewReader(data), int64(len(data)), dest, stripRoot)
}

// ZipFile extracts the zip archive stored at archivePath into dest.
func ZipFile(archivePath, dest string, stripRoot bool) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive %s: %w", archivePath, err)
	}

	return Zip(file, info.Size(), dest, stripRoot)
}

// Zip extracts a zip archive into dest, creating it if needed.
// With stripRoot, a single top-level folder wrapping every entry is removed from the paths.
func Zip(r io.ReaderAt, size int64, dest string, stripRoot bool) error {
	reader, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	dst, err := openDestination(dest)
	if err != nil {
		return err
	}

	defer func() {
		_ = dst.Close()
	}()

	root := ""
	if stripRoot {
		names := make([]string, len(reader.File))
		for i, file := range reader.File {
			names[i] = file.Name
		}

		root = commonRoot(names, func(i int) bool {
			return reader.File[i].FileInfo().IsDir()
		})
	}

	for _, file := range reader.File {
		rel, err := resolveTarget(file.Name, root)
		if err != nil {
			return err
		}

		if rel == "" {
			continue
		}

		if err = extractZipEntry(dst, rel, file); err != nil {
			return err
		}
	}

	return nil
}

func extractZipEntry(dst *destination, rel string, file *zip.File) error {
	mode := file.Mode()

	switch {
	case mode.IsDir():
		return dst.mkdir(rel)
	case mode&fs.ModeSymlink != 0:
		linkname, err := readZipEntry(file, maxSymlinkTarget)
		if err != nil {
			return err
		}

		return dst.symlink(rel, string(linkname))
	}

	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrInvalidArchive, file.Name, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	writer, err := dst.createFile(rel, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(writer, reader); err != nil {
		_ = writer.Close()

		return fmt.Errorf("%w: extract %s: %w", ErrInvalidArchive, file.Name, err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Join(dst.path, rel), err)
	}

	return nil
}

func readZipEntry(file *zip.File, limit int64) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrInvalidArchive, file.Name, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidArchive, file.Name, err)
	}

	return data, nil
}
