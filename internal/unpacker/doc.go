// Package unpacker extracts zip archives and gzip-compressed tar archives
// into a destination directory.
//
// Zip extraction can strip the single top-level folder many release archives
// wrap their contents in. Entries that would land outside the destination
// are rejected rather than skipped, and so are entries whose parent directory
// is a symlink.
package unpacker
