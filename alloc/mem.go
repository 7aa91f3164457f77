package alloc

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/outofforest/photon"
)

// Config stores memory allocation options.
type Config struct {
	// Lock keeps allocated pages resident in RAM.
	Lock bool

	// HugePages requests huge pages from the kernel.
	// When using huge pages, the size must be a multiple of the hugepage size. Otherwise, munmap fails.
	HugePages bool
}

// Allocate allocates aligned memory.
func Allocate(size, alignment uint64, config Config) (unsafe.Pointer, func(), error) {
	if size == 0 {
		return nil, nil, errors.New("allocation of zero bytes requested")
	}
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return nil, nil, errors.Errorf("alignment %d is not a power of two", alignment)
	}

	opts := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_POPULATE
	if config.HugePages {
		opts |= unix.MAP_HUGETLB
	}
	if config.Lock {
		opts |= unix.MAP_LOCKED
	}
	alignmentUintptr := uintptr(alignment)
	allocatedSize := uintptr(size) + alignmentUintptr
	dataP, err := unix.MmapPtr(-1, 0, nil, allocatedSize, unix.PROT_READ|unix.PROT_WRITE, opts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "memory allocation failed")
	}

	dataPOrig := dataP
	deallocFunc := func() {
		// mmap might allocate more memory because it is always a multiple of the page size.
		// We need to provide that size to the munmap, not the original size we used for allocation, otherwise error is
		// returned and memory is not deallocated.
		// For hugepages there is no function returning the page size, but only two cases are possible: 2MB or 1GB.
		if config.HugePages {
			if err := unmap(dataPOrig, allocatedSize, 2*1024*1024); err == nil {
				return
			}
			_ = unmap(dataPOrig, allocatedSize, 1024*1024*1024)
		}
		_ = unmap(dataPOrig, allocatedSize, uintptr(os.Getpagesize()))
	}

	diff := uint64((uintptr(dataP)+alignmentUintptr-1)/alignmentUintptr*alignmentUintptr - uintptr(dataP))
	dataP = unsafe.Add(dataP, diff)

	// MAP_LOCKED does not report failure, so locking is verified explicitly.
	if config.Lock {
		if err := unix.Mlock(photon.SliceFromPointer[byte](dataP, int(size))); err != nil {
			deallocFunc()
			return nil, nil, errors.Wrapf(err, "locking %d bytes of memory failed", size)
		}
	}

	return dataP, deallocFunc, nil
}

func unmap(ptr unsafe.Pointer, size, pageSize uintptr) error {
	return unix.MunmapPtr(ptr, (size+pageSize-1)/pageSize*pageSize)
}
