package common

import "errors"

// Sentinel errors shared by every subsystem. Mount failures surface
// exactly one of these (or an error propagated unchanged from a
// collaborator) after unwinding everything acquired so far.

var (
	// ErrAlloc reports that a context, buffer or pool slot could not be
	// obtained.
	ErrAlloc = errors.New("cannot allocate memory")

	// ErrBlockSize reports that the device cannot honor the fixed
	// filesystem block size.
	ErrBlockSize = errors.New("device cannot support block size")

	// ErrBadMagic reports that block 0 did not decode to a babyfs
	// superblock.
	ErrBadMagic = errors.New("bad magic number in superblock")

	// ErrRootEntry reports that the root directory entry could not be
	// assembled from the root inode.
	ErrRootEntry = errors.New("cannot create root directory entry")

	// ErrRegistered and ErrNotRegistered report filesystem-type registry
	// failures.
	ErrRegistered    = errors.New("filesystem type already registered")
	ErrNotRegistered = errors.New("filesystem type not registered")

	EROFS  = errors.New("read-only file system")
	EIO    = errors.New("input/output error")
	EBUSY  = errors.New("resource busy")
	EINVAL = errors.New("invalid argument")
	ENOENT = errors.New("no such file or directory")
	ENFILE = errors.New("file table overflow")
)
