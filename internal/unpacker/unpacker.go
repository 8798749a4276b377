package unpacker

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Format is the container format of an archive.
type Format uint8

// Supported formats.
const (
	FormatZip Format = iota + 1
	FormatTarGz
)

const (
	// dirPermissions is used for every directory the unpacker creates.
	dirPermissions = 0o755
	// defaultFilePermissions is used when an entry carries no permission bits.
	defaultFilePermissions = 0o644
)

var (
	// ErrInvalidArchive is returned when the archive cannot be parsed.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrInvalidEntryPath is returned for entries that are absolute or escape the destination.
	ErrInvalidEntryPath = errors.New("invalid archive entry path")
	// ErrUnknownFormat is returned by Extract for an unsupported Format value.
	ErrUnknownFormat = errors.New("unknown archive format")
)

// String returns the usual file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Extract unpacks an in-memory archive of the given format into dest.
// stripRoot only applies to zip archives.
func Extract(data []byte, format Format, dest string, stripRoot bool) error {
	switch format {
	case FormatZip:
		return ZipBytes(data, dest, stripRoot)
	case FormatTarGz:
		return TarGz(bytes.NewReader(data), dest)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// destination is an extraction directory opened as an os.Root, so nothing written
// through it can land outside the directory.
type destination struct {
	path string
	root *os.Root
}

// openDestination creates dest if needed and opens it for extraction.
func openDestination(dest string) (*destination, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination %s: %w", dest, err)
	}

	if err = os.MkdirAll(abs, dirPermissions); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", abs, err)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open destination %s: %w", abs, err)
	}

	return &destination{path: abs, root: root}, nil
}

func (d *destination) Close() error {
	return d.root.Close()
}

// entryParts splits an archive entry name into its path segments.
// Windows separators are accepted; "." segments are dropped.
func entryParts(name string) []string {
	name = strings.ReplaceAll(name, `\`, "/")

	parts := make([]string, 0, strings.Count(name, "/")+1)
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." {
			continue
		}

		parts = append(parts, part)
	}

	return parts
}

// commonRoot returns the top-level folder shared by every entry, or "" when there is none.
// isDir reports whether the entry with the given name is a directory.
func commonRoot(names []string, isDir func(i int) bool) string {
	root := ""

	for i, name := range names {
		parts := entryParts(name)
		if len(parts) == 0 {
			continue
		}

		if parts[0] == ".." || (len(parts) == 1 && !isDir(i)) {
			return ""
		}

		switch {
		case root == "":
			root = parts[0]
		case root != parts[0]:
			return ""
		}
	}

	return root
}

// resolveTarget maps an entry name to a path relative to the destination.
// It returns "" for entries that vanish after stripping root, such as the root folder itself.
func resolveTarget(name, root string) (string, error) {
	parts := entryParts(name)
	if root != "" && len(parts) > 0 && parts[0] == root {
		parts = parts[1:]
	}

	if len(parts) == 0 {
		return "", nil
	}

	rel := filepath.FromSlash(path.Join(parts...))
	if strings.HasPrefix(name, "/") || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, name)
	}

	return rel, nil
}

// checkParents rejects rel when an existing parent directory of it is a symlink.
// Links are only ever resolved lexically, so following one to place a new entry is refused.
func (d *destination) checkParents(rel string) error {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}

	current := ""

	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		current = filepath.Join(current, part)

		info, err := d.root.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("inspect %s: %w", filepath.Join(d.path, current), err)
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s goes through symlink %s", ErrInvalidEntryPath, rel, current)
		}
	}

	return nil
}

// mkdir creates the directory rel and its parents.
func (d *destination) mkdir(rel string) error {
	if err := d.checkParents(rel); err != nil {
		return err
	}

	if err := d.root.MkdirAll(rel, dirPermissions); err != nil {
		return fmt.Errorf("create directory %s: %w", filepath.Join(d.path, rel), err)
	}

	return nil
}

// createFile opens rel for writing, replacing any symlink that sits in its place.
func (d *destination) createFile(rel string, mode fs.FileMode) (*os.File, error) {
	if err := d.prepareParent(rel); err != nil {
		return nil, err
	}

	if info, err := d.root.Lstat(rel); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		_ = d.root.Remove(rel)
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = defaultFilePermissions
	}

	file, err := d.root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", filepath.Join(d.path, rel), err)
	}

	return file, nil
}

// symlink creates a symlink at rel pointing to linkname, which must stay inside the destination.
func (d *destination) symlink(rel, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("%w: symlink %s -> %s", ErrInvalidEntryPath, rel, linkname)
	}

	resolved := filepath.Join(filepath.Dir(rel), filepath.FromSlash(linkname))
	if resolved != "." && !filepath.IsLocal(resolved) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrInvalidEntryPath, rel, linkname)
	}

	if err := d.prepareParent(rel); err != nil {
		return err
	}

	_ = d.root.Remove(rel)

	if err := d.root.Symlink(linkname, rel); err != nil {
		return fmt.Errorf("create symlink %s: %w", filepath.Join(d.path, rel), err)
	}

	return nil
}

// prepareParent validates and creates the parent directory of rel.
func (d *destination) prepareParent(rel string) error {
	if err := d.checkParents(rel); err != nil {
		return err
	}

	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}

	if err := d.root.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create directory for %s: %w", filepath.Join(d.path, rel), err)
	}

	return nil
}
