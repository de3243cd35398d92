package fs

import (
	"sync"

	"github.com/jiebaomaster/babyfs/common"
)

// MountOptions carries the opaque per-mount options handed through the
// registry to the filesystem's mount entry point.
type MountOptions struct {
	ReadOnly bool
}

// FileSystemType describes one registered filesystem driver: its name,
// its mount and unmount entry points, and whether mounts of this type
// need a backing block device.
type FileSystemType struct {
	Name        string
	Mount       func(dev common.BlockDevice, opts MountOptions) (*DirEntry, error)
	Unmount     func(entry *DirEntry) error
	RequiresDev bool
}

// Registry is the process-wide filesystem-type registry. Drivers
// register on load and unregister on unload; mounts are dispatched by
// type name.
type Registry struct {
	m     sync.Mutex
	types map[string]*FileSystemType
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*FileSystemType)}
}

// Register adds a filesystem type. A name can only be registered once.
func (r *Registry) Register(fstype *FileSystemType) error {
	if fstype == nil || fstype.Name == "" || fstype.Mount == nil {
		return common.EINVAL
	}

	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.types[fstype.Name]; ok {
		return common.ErrRegistered
	}
	r.types[fstype.Name] = fstype
	return nil
}

// Unregister removes a filesystem type by name.
func (r *Registry) Unregister(name string) error {
	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.types[name]; !ok {
		return common.ErrNotRegistered
	}
	delete(r.types, name)
	return nil
}

// Lookup finds a registered filesystem type by name.
func (r *Registry) Lookup(name string) (*FileSystemType, error) {
	r.m.Lock()
	defer r.m.Unlock()

	fstype, ok := r.types[name]
	if !ok {
		return nil, common.ErrNotRegistered
	}
	return fstype, nil
}

// MountByName dispatches a mount request to the named driver, enforcing
// the requires-device flag the way the surrounding runtime layer would.
func (r *Registry) MountByName(name string, dev common.BlockDevice, opts MountOptions) (*DirEntry, error) {
	fstype, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if fstype.RequiresDev && dev == nil {
		return nil, common.EINVAL
	}
	return fstype.Mount(dev, opts)
}
