// Package mmap provides a read-only memory-mapped view of an archive file.
//
// The mapping is created once and handed out as a byte slice so records can
// reference the archive by offset without copying. On Unix the file is mapped
// with mmap(2) and access hints go through madvise(2). Elsewhere the file is
// read into memory and hints are no-ops.
//
// The slice returned by Bytes is valid only until Close. The mapped file must
// not be truncated or rewritten while the mapping is open.
package mmap
