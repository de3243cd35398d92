package fs

import (
	multierror "github.com/hashicorp/go-multierror"

	"github.com/jiebaomaster/babyfs/common"
)

// Unmount is the babyfs unmount entry point: release the root inode,
// put-super, then detach the device from the cache. Errors along the way
// are collected rather than aborting the release halfway.
func (mod *Module) Unmount(entry *DirEntry) error {
	if entry == nil || entry.Volume == nil {
		return common.EINVAL
	}
	vol := entry.Volume

	mod.m.Lock()
	if mod.volumes[vol.devnum] != vol {
		mod.m.Unlock()
		return common.EINVAL // not a mounted volume
	}
	mod.volumes[vol.devnum] = nil
	mod.m.Unlock()

	var errs error

	if vol.root != nil {
		mod.pool.RequestDestroy(vol.root)
		vol.root = nil
	}

	if err := vol.PutSuper(); err != nil {
		errs = multierror.Append(errs, err)
	}

	mod.cache.Flush(vol.devnum)
	mod.cache.Invalidate(vol.devnum)
	if err := mod.cache.UnmountDevice(vol.devnum); err != nil {
		errs = multierror.Append(errs, err)
	}

	mod.m.Lock()
	mod.devices[vol.devnum] = nil
	mod.m.Unlock()

	if errs != nil {
		log.Errorf("unmount of session %s failed: %s", vol.SessionID, errs)
		return errs
	}

	log.Infof("unmounted %s session %s", FSName, vol.SessionID)
	return nil
}
