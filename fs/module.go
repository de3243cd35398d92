package fs

import (
	"sync"

	"github.com/benbjohnson/clock"
	multierror "github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"

	"github.com/jiebaomaster/babyfs/bcache"
	"github.com/jiebaomaster/babyfs/common"
	"github.com/jiebaomaster/babyfs/inodepool"
)

var log = logging.Logger("babyfs")

// FSName is the name the driver registers under.
const FSName = "babyfs"

// Module is the loaded driver: the process-wide inode object pool, the
// shared block cache, and the table of mounted volumes. One Module
// serves any number of independently mounted volumes.
type Module struct {
	registry *Registry
	cache    common.BlockCache
	pool     *inodepool.Pool

	m       sync.Mutex
	devices []common.BlockDevice
	volumes []*Volume
}

// Init loads the driver: it creates the inode object pool and registers
// the filesystem type. If registration fails the pool is destroyed
// before the error is reported, so a failed load leaves nothing behind.
func Init(registry *Registry) (*Module, error) {
	return initModule(registry, clock.New())
}

func initModule(registry *Registry, clk clock.Clock) (*Module, error) {
	pool, err := inodepool.New(common.NR_INODES, clk)
	if err != nil {
		log.Errorf("cannot create inode object pool: %s", err)
		return nil, err
	}

	mod := &Module{
		registry: registry,
		cache:    bcache.NewLRUCache(common.NR_DEVICES, common.NR_BUFS, common.NR_BUF_HASH),
		pool:     pool,
		devices:  make([]common.BlockDevice, common.NR_DEVICES),
		volumes:  make([]*Volume, common.NR_DEVICES),
	}

	fstype := &FileSystemType{
		Name:        FSName,
		Mount:       mod.Mount,
		Unmount:     mod.Unmount,
		RequiresDev: true,
	}
	if err := registry.Register(fstype); err != nil {
		log.Errorf("cannot register filesystem type %q: %s", FSName, err)
		if terr := pool.Teardown(); terr != nil {
			err = multierror.Append(err, terr)
		}
		if serr := mod.cache.Shutdown(); serr != nil {
			err = multierror.Append(err, serr)
		}
		return nil, err
	}

	log.Infof("loaded %s", FSName)
	return mod, nil
}

// Exit unloads the driver. The type is unregistered first, so no new
// mount can start while the pool is being destroyed; the pool teardown
// then waits out every deferred reclamation before freeing. A failure
// aborts the unload visibly rather than dropping outstanding objects.
func (mod *Module) Exit() error {
	mod.m.Lock()
	for i := range mod.volumes {
		if mod.volumes[i] != nil {
			mod.m.Unlock()
			return common.EBUSY
		}
	}
	mod.m.Unlock()

	var errs error
	if err := mod.registry.Unregister(FSName); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := mod.pool.Teardown(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := mod.cache.Shutdown(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		log.Errorf("unload of %s failed: %s", FSName, errs)
		return errs
	}

	log.Infof("unloaded %s", FSName)
	return nil
}

// Pool exposes the process-wide inode object pool.
func (mod *Module) Pool() *inodepool.Pool {
	return mod.pool
}

// Cache exposes the shared block cache.
func (mod *Module) Cache() common.BlockCache {
	return mod.cache
}
