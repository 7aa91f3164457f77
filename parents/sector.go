package parents

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/outofforest/sdr/types"
)

// DefaultCacheDir is the directory where parent caches are stored by default.
const DefaultCacheDir = "/var/tmp/filecoin-parents"

// Sector describes graph parameters of a supported sector size.
type Sector struct {
	Size      uint64
	CacheFile string
}

// NumOfNodes returns the number of nodes in a layer.
func (s Sector) NumOfNodes() uint64 {
	return s.Size / types.NodeSize
}

// CachePath returns path of the parent cache inside the directory.
func (s Sector) CachePath(dir string) string {
	return filepath.Join(dir, s.CacheFile)
}

// Supported sector sizes.
var (
	Sector2KiB = Sector{
		Size:      2 << 10,
		CacheFile: "v28-sdr-parent-3894e5db3e22e371be947bd27e5c6e8e7da3ca81c6bd8005e42504ff101796f1.cache",
	}
	Sector512MiB = Sector{
		Size:      512 << 20,
		CacheFile: "v28-sdr-parent-b9440d6f444972abcd5ebc48231d93b92e7d1c132968170ae29c44d68fa04d04.cache",
	}
	Sector32GiB = Sector{
		Size:      32 << 30,
		CacheFile: "v28-sdr-parent-d5500bc0dddadb609f867d94da1471ecbaac3fe6f8ac68a4705cebde04a765b8.cache",
	}
)

var sectors = []Sector{Sector2KiB, Sector512MiB, Sector32GiB}

// SectorBySize returns sector of the requested size.
func SectorBySize(size uint64) (Sector, error) {
	for _, s := range sectors {
		if s.Size == size {
			return s, nil
		}
	}
	return Sector{}, errors.Errorf("sector size %d is not supported", size)
}
