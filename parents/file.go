package parents

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/outofforest/photon"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/types"
)

// Open maps the parent cache file covering numOfNodes nodes.
func Open(path string, numOfNodes uint64, config alloc.Config) (*Table, func(), error) {
	if numOfNodes == 0 {
		return nil, nil, errors.New("parent table must contain at least one node")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening parent cache %q failed", path)
	}

	size := numOfNodes * types.ParentsRecordSize
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, errors.Wrapf(err, "reading size of parent cache %q failed", path)
	}
	if uint64(info.Size()) < size {
		_ = file.Close()
		return nil, nil, errors.Errorf("parent cache %q has %d bytes, %d are required for %d nodes", path,
			info.Size(), size, numOfNodes)
	}

	opts := unix.MAP_PRIVATE | unix.MAP_POPULATE
	if config.Lock {
		opts |= unix.MAP_LOCKED
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, opts)
	if err != nil {
		_ = file.Close()
		return nil, nil, errors.Wrapf(err, "mapping parent cache %q failed", path)
	}

	closeFunc := func() {
		_ = unix.Munmap(data)
		_ = file.Close()
	}

	if uintptr(unsafe.Pointer(&data[0]))%types.Alignment != 0 {
		closeFunc()
		return nil, nil, errors.Errorf("parent cache %q is not aligned", path)
	}
	if config.Lock {
		if err := unix.Mlock(data); err != nil {
			closeFunc()
			return nil, nil, errors.Wrapf(err, "locking parent cache %q failed", path)
		}
	}

	return &Table{
		records: photon.SliceFromPointer[types.Parents](unsafe.Pointer(&data[0]), int(numOfNodes)),
	}, closeFunc, nil
}
