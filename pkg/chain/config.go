package chain

import (
	"github.com/metador-go/ih5/pkg/integrity"
	"github.com/metador-go/ih5/pkg/metrics"
)

// Config carries the tunables needed to create new files in a chain. It is
// typically populated from pkg/config, mirroring how the teacher threads its
// Config struct down into store constructors.
type Config struct {
	// ReservedUserBlockSize is the number of bytes reserved for the
	// administrative header of every new file. Must be a power of two
	// >= userblock.MinSize.
	ReservedUserBlockSize int

	// HashAlgorithm names the integrity algorithm used to compute and
	// verify payload hashsums. Empty selects integrity.DefaultAlgorithm.
	HashAlgorithm string

	// AllowBaseless permits opening a chain whose first file has a non-nil
	// prev_patch (used when applying a patch subchain against a stub whose
	// base is absent).
	AllowBaseless bool

	// Metrics receives lifecycle instrumentation (commits, discards, merges,
	// integrity failures, bytes hashed). Nil disables instrumentation at
	// zero overhead.
	Metrics metrics.ChainMetrics
}

// DefaultReservedUserBlockSize is eight times the smallest valid
// reservation (userblock.MinSize),
// generous enough for the administrative record plus a handful of
// extensions without wasting disk space on every patch.
const DefaultReservedUserBlockSize = 4096

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReservedUserBlockSize: DefaultReservedUserBlockSize,
		HashAlgorithm:         integrity.DefaultAlgorithm,
	}
}
