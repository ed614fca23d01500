package smdbx

import (
	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// Mode selects how the environment is opened.
type Mode int

const (
	// ModeReadWrite opens the environment for reading and writing. The
	// durability of writes is governed by the SyncMode option.
	ModeReadWrite Mode = iota

	// ModeReadOnly opens the environment for reading only. Beginning a
	// write transaction fails with ErrAccess.
	ModeReadOnly
)

// SyncMode selects the durability guarantee of a read-write environment.
// It is ignored in read-only mode.
type SyncMode int

const (
	// SyncDurable flushes data and meta pages on every commit. A committed
	// transaction survives power failure.
	SyncDurable SyncMode = iota

	// SyncNoMetaSync skips the meta-page flush. The last committed
	// transaction may be lost on system crash, the database stays intact.
	SyncNoMetaSync

	// SyncSafeNoSync defers flushing to the OS. Several last transactions
	// may be lost on crash, the database stays intact.
	SyncSafeNoSync

	// SyncUtterlyNoSync performs no flushing at all. A crash can leave the
	// database needing recovery or, in the worst case, corrupted.
	SyncUtterlyNoSync
)

// TableFlags describe the key/value shape of a table. They are fixed when
// the table is created.
type TableFlags uint

const (
	// ReverseKey compares keys back to front
	ReverseKey = TableFlags(mdbx.ReverseKey)

	// DupSort allows multiple sorted values under one key
	DupSort = TableFlags(mdbx.DupSort)

	// IntegerKey treats keys as native-endian unsigned integers
	IntegerKey = TableFlags(mdbx.IntegerKey)

	// DupFixed requires DupSort values to all have the same size, enabling
	// the GetMultiple/NextMultiple bulk reads
	DupFixed = TableFlags(mdbx.DupFixed)

	// IntegerDup treats DupSort values as native-endian unsigned integers
	IntegerDup = TableFlags(mdbx.IntegerDup)

	// ReverseDup compares DupSort values back to front
	ReverseDup = TableFlags(mdbx.ReverseDup)

	// TableAccede opens a table created with unknown flags, adopting them
	TableAccede = TableFlags(mdbx.DBAccede)
)

// PutFlags tune the behavior of Put and cursor Put operations.
type PutFlags uint

const (
	// Upsert inserts the pair or overwrites the existing value. For
	// DupSort tables it adds another value to the key. The default.
	Upsert = PutFlags(mdbx.Upsert)

	// NoOverwrite fails with ErrKeyExist if the key is already present
	NoOverwrite = PutFlags(mdbx.NoOverwrite)

	// NoDupData fails with ErrKeyExist if the exact key/value pair is
	// already present in a DupSort table
	NoDupData = PutFlags(mdbx.NoDupData)

	// Current overwrites the value at the cursor's current position
	Current = PutFlags(mdbx.Current)

	// AllDups replaces all values of the key in a DupSort table at once
	AllDups = PutFlags(mdbx.AllDups)

	// Append adds the pair at the end of the table without comparisons;
	// fails with ErrKeyMismatch if it would break the key order
	Append = PutFlags(mdbx.Append)

	// AppendDup adds the value at the end of the key's duplicates
	AppendDup = PutFlags(mdbx.AppendDup)

	// Multiple stores several contiguous fixed-size values in one call
	// (DupFixed tables only)
	Multiple = PutFlags(mdbx.Multiple)
)

// envFlags builds the engine flag word for opening. NoTLS is always set so
// transactions are not bound to the OS thread that began them; the writer
// worker relies on this.
func envFlags(mode Mode, sync SyncMode, noSubdir, exclusive, accede, noReadahead, noMemInit, lifoReclaim bool) uint {
	var flags uint

	if noSubdir {
		flags |= mdbx.NoSubdir
	}
	if exclusive {
		flags |= mdbx.Exclusive
	}
	if accede {
		flags |= mdbx.Accede
	}

	if mode == ModeReadOnly {
		flags |= mdbx.Readonly
	} else {
		switch sync {
		case SyncDurable:
			flags |= mdbx.Durable
		case SyncNoMetaSync:
			flags |= mdbx.NoMetaSync
		case SyncSafeNoSync:
			flags |= mdbx.SafeNoSync
		case SyncUtterlyNoSync:
			flags |= mdbx.UtterlyNoSync
		}
	}

	if noReadahead {
		flags |= mdbx.NoReadahead
	}
	if noMemInit {
		flags |= mdbx.NoMemInit
	}
	if lifoReclaim {
		flags |= mdbx.LifoReclaim
	}

	flags |= mdbx.NoTLS

	return flags
}
