package smdbx

import (
	"os"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// Page size limits accepted by the engine
const (
	MinPageSize = 256
	MaxPageSize = 65536
)

// PageSizeMinimal requests the smallest page size the engine accepts
// instead of its platform default.
const PageSizeMinimal = -1

// Geometry bounds the size of the database file. Zero fields are left to
// the engine's defaults.
type Geometry struct {
	// SizeLower and SizeUpper bound the file size; SizeNow sets the
	// current size inside those bounds.
	SizeLower int
	SizeNow   int
	SizeUpper int

	// GrowthStep is the file growth increment, ShrinkThreshold the amount
	// of unused space that triggers shrinking.
	GrowthStep      int
	ShrinkThreshold int

	// PageSize is the database page size, fixed at creation. Zero keeps
	// the engine default, PageSizeMinimal requests the smallest accepted.
	PageSize int
}

// Options configure an environment at open time. The zero value opens a
// read-write durable environment with engine defaults.
type Options struct {
	// Mode selects read-only or read-write opening
	Mode Mode

	// SyncMode selects durability for read-write mode
	SyncMode SyncMode

	// Permissions is the file mode for created database files. Zero means
	// 0644. Ignored on Windows.
	Permissions os.FileMode

	// MaxReaders sets the size of the reader slot table. Zero keeps the
	// engine default.
	MaxReaders uint

	// MaxTables sets how many named tables may be opened. Zero keeps the
	// engine default.
	MaxTables uint

	// Geometry bounds the database file size. Nil keeps engine defaults.
	Geometry *Geometry

	// NoSubdir stores the database in a single file at path instead of a
	// directory of files.
	NoSubdir bool

	// Exclusive opens the environment for exclusive use, failing if any
	// other process has it open.
	Exclusive bool

	// Accede adopts the flags the environment was created with when they
	// conflict with the ones requested here.
	Accede bool

	// NoReadahead disables OS read-ahead on the database file. Useful
	// when the database is much larger than RAM and access is random.
	NoReadahead bool

	// NoMemInit skips zeroing freshly allocated pages before writing.
	NoMemInit bool

	// Coalesce is accepted for compatibility. The engine now always
	// coalesces free-list records, so the field has no effect.
	Coalesce bool

	// LifoReclaim recycles the most recently freed pages first, which
	// keeps write-back caches effective under sustained load.
	LifoReclaim bool

	// Page-cache tuning. Zero keeps the engine default for each knob.
	RpAugmentLimit      uint64
	LooseLimit          uint64
	DpReserveLimit      uint64
	TxnDpLimit          uint64
	TxnDpInitial        uint64
	SpillMinDenominator uint64
	SpillMaxDenominator uint64
}

// envFlags builds the engine flag word for this option set.
func (o *Options) envFlags() uint {
	return envFlags(o.Mode, o.SyncMode, o.NoSubdir, o.Exclusive, o.Accede,
		o.NoReadahead, o.NoMemInit, o.LifoReclaim)
}

// permissions returns the file mode to open with.
func (o *Options) permissions() os.FileMode {
	if o.Permissions == 0 {
		return 0644
	}
	return o.Permissions
}

// geometryArg translates a zero field to the engine's keep-default marker.
func geometryArg(v int) int {
	if v == 0 {
		return -1
	}
	return v
}

// apply configures a freshly created engine env, before it is opened.
func (o *Options) apply(env *mdbx.Env) error {
	if g := o.Geometry; g != nil {
		pageSize := g.PageSize
		switch pageSize {
		case 0:
			pageSize = -1
		case PageSizeMinimal:
			pageSize = 0
		}
		if err := env.SetGeometry(geometryArg(g.SizeLower), geometryArg(g.SizeNow),
			geometryArg(g.SizeUpper), geometryArg(g.GrowthStep),
			geometryArg(g.ShrinkThreshold), pageSize); err != nil {
			return wrapEngine(err)
		}
	}

	if o.MaxTables != 0 {
		if err := env.SetOption(mdbx.OptMaxDB, uint64(o.MaxTables)); err != nil {
			return wrapEngine(err)
		}
	}
	if o.MaxReaders != 0 {
		if err := env.SetOption(mdbx.OptMaxReaders, uint64(o.MaxReaders)); err != nil {
			return wrapEngine(err)
		}
	}

	knobs := []struct {
		opt   uint
		value uint64
	}{
		{mdbx.OptRpAugmentLimit, o.RpAugmentLimit},
		{mdbx.OptLooseLimit, o.LooseLimit},
		{mdbx.OptDpReserveLimit, o.DpReserveLimit},
		{mdbx.OptTxnDpLimit, o.TxnDpLimit},
		{mdbx.OptTxnDpInitial, o.TxnDpInitial},
		{mdbx.OptSpillMinDenominator, o.SpillMinDenominator},
		{mdbx.OptSpillMaxDenominator, o.SpillMaxDenominator},
	}
	for _, k := range knobs {
		if k.value == 0 {
			continue
		}
		if err := env.SetOption(k.opt, k.value); err != nil {
			return wrapEngine(err)
		}
	}

	return nil
}
