package unpacker

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

// TarGzBytes extracts an in-memory gzip-compressed tar archive into dest.
func TarGzBytes(data []byte, dest string) error {
	return TarGz(bytes.NewReader(data), dest)
}

// TarGz extracts a gzip-compressed tar stream into dest, creating it if needed.
// Directories, regular files and symlinks are restored; other entry types are skipped.
func TarGz(r io.Reader, dest string) error {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	defer func() {
		_ = gzReader.Close()
	}()

	dst, err := openDestination(dest)
	if err != nil {
		return err
	}

	defer func() {
		_ = dst.Close()
	}()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
		}

		rel, err := resolveTarget(header.Name, "")
		if err != nil {
			return err
		}

		if rel == "" {
			continue
		}

		if err = extractTarEntry(dst, rel, header, tarReader); err != nil {
			return err
		}
	}
}

func extractTarEntry(dst *destination, rel string, header *tar.Header, body io.Reader) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return dst.mkdir(rel)
	case tar.TypeReg:
		writer, err := dst.createFile(rel, header.FileInfo().Mode())
		if err != nil {
			return err
		}

		if _, err = io.Copy(writer, body); err != nil {
			_ = writer.Close()

			return fmt.Errorf("%w: extract %s: %w", ErrInvalidArchive, header.Name, err)
		}

		if err = writer.Close(); err != nil {
			return fmt.Errorf("close %s: %w", filepath.Join(dst.path, rel), err)
		}
	case tar.TypeSymlink:
		return dst.symlink(rel, header.Linkname)
	}

	return nil
}
