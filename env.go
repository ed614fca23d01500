package smdbx

import (
	"encoding/binary"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// writeRetryDelay is how long BeginWrite waits before asking the writer
// thread again while another write transaction is still running.
const writeRetryDelay = 250 * time.Millisecond

// Env is a handle for an opened database environment. An Env supports any
// number of concurrent read transactions and at most one write transaction
// at a time; write transactions are serialized through a dedicated writer
// thread owned by the Env. All methods are safe for concurrent use.
type Env struct {
	env      *mdbx.Env
	path     string
	readonly bool
	worker   *txnWorker

	closed atomic.Bool

	// handleMu guards handleGen, a generation counter per table handle.
	// Dropping a table, or aborting the transaction that first opened a
	// handle, bumps the generation so stale Table values are rejected
	// before they reach the engine.
	handleMu  sync.Mutex
	handleGen map[mdbx.DBI]uint64
}

// Open creates or opens a database environment at path. Geometry, limits
// and durability are taken from opts; the zero Options value opens an
// environment with engine defaults in read-write mode. The returned Env
// must be released with Close. If setup fails after the underlying handle
// was created, the handle is closed before returning.
func Open(path string, opts Options) (*Env, error) {
	env, err := mdbx.NewEnv(mdbx.Default)
	if err != nil {
		return nil, wrapEngine(err)
	}
	if err := opts.apply(env); err != nil {
		env.Close()
		return nil, err
	}
	if err := env.Open(path, opts.envFlags(), opts.permissions()); err != nil {
		env.Close()
		return nil, wrapEngine(err)
	}
	e := &Env{
		env:       env,
		path:      path,
		readonly:  opts.Mode == ModeReadOnly,
		handleGen: make(map[mdbx.DBI]uint64),
	}
	if !e.readonly {
		e.worker = startTxnWorker(env)
	}
	return e, nil
}

// Close stops the writer thread and releases the environment. It is safe
// to call more than once; repeated calls are no-ops. All transactions and
// cursors must be finished before Close is called.
func (e *Env) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	if e.worker != nil {
		e.worker.stop()
	}
	e.env.Close()
	return nil
}

// BeginRead starts a read-only transaction. Read transactions run
// concurrently with each other and with the write transaction; each one
// observes the snapshot that was current when it began. The transaction
// occupies a reader slot until it is aborted or reset.
func (e *Env) BeginRead() (*Txn, error) {
	if e.closed.Load() {
		return nil, NewError(ErrBadSign)
	}
	tx, err := e.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, wrapEngine(err)
	}
	// Values read through this transaction may reference the memory map
	// directly. The pages cannot change under a live read snapshot.
	tx.RawRead = true
	return &Txn{txn{env: e, tx: tx, state: txnActive}}, nil
}

// BeginWrite starts a read-write transaction. At most one write
// transaction exists at a time; while another is running, BeginWrite
// sleeps and retries until the writer thread accepts the request. On a
// read-only environment it fails with ErrAccess.
func (e *Env) BeginWrite() (*RwTxn, error) {
	if e.closed.Load() {
		return nil, NewError(ErrBadSign)
	}
	if e.worker == nil {
		return nil, NewError(ErrAccess)
	}
	for {
		tx, err := e.worker.begin(nil)
		if err == nil {
			return &RwTxn{txn{env: e, tx: tx, rw: true, state: txnActive}}, nil
		}
		if err = wrapEngine(err); !IsBusy(err) {
			return nil, err
		}
		time.Sleep(writeRetryDelay)
	}
}

// View runs fn inside a read-only transaction and aborts the transaction
// when fn returns. The error from fn is passed through.
func (e *Env) View(fn func(*Txn) error) error {
	tx, err := e.BeginRead()
	if err != nil {
		return err
	}
	defer tx.Abort()
	return fn(tx)
}

// Update runs fn inside a write transaction. The transaction is committed
// if fn returns nil and aborted otherwise.
func (e *Env) Update(fn func(*RwTxn) error) error {
	tx, err := e.BeginWrite()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Abort()
		return err
	}
	_, _, err = tx.Commit()
	return err
}

// Sync flushes buffered modifications to disk. With force set the flush is
// unconditional and waits for completion; otherwise it obeys the
// environment's sync mode. The boolean reports whether the engine actually
// wrote data, when the binding exposes that distinction.
func (e *Env) Sync(force bool) (bool, error) {
	if e.closed.Load() {
		return false, NewError(ErrBadSign)
	}
	return engineResult(e.env.Sync(force, false))
}

// Stat holds B-tree statistics for an environment or a single table.
type Stat struct {
	PageSize      uint   // Size of a database page
	Depth         uint   // Depth (height) of the B-tree
	BranchPages   uint64 // Number of internal (non-leaf) pages
	LeafPages     uint64 // Number of leaf pages
	OverflowPages uint64 // Number of overflow pages
	Entries       uint64 // Number of data items
}

// GeoInfo describes the datafile size bounds of an environment, in bytes.
type GeoInfo struct {
	Lower   uint64 // Lower limit for the datafile size
	Current uint64 // Current datafile size
	Upper   uint64 // Upper limit for the datafile size
}

// Info holds general information about an environment.
type Info struct {
	Geo        GeoInfo
	MapSize    uint64 // Size of the memory map
	LastPgNo   uint64 // Number of the last used page
	LastTxnID  uint64 // ID of the last committed transaction
	MaxReaders uint   // Reader slot limit
	NumReaders uint   // Reader slots currently in use
}

// Stat returns statistics for the main database of the environment.
func (e *Env) Stat() (*Stat, error) {
	if e.closed.Load() {
		return nil, NewError(ErrBadSign)
	}
	st, err := e.env.Stat()
	if err != nil {
		return nil, wrapEngine(err)
	}
	return statFrom(st), nil
}

// Info returns general information about the environment.
func (e *Env) Info() (*Info, error) {
	if e.closed.Load() {
		return nil, NewError(ErrBadSign)
	}
	info, err := e.env.Info(nil)
	if err != nil {
		return nil, wrapEngine(err)
	}
	return &Info{
		Geo: GeoInfo{
			Lower:   uint64(info.Geo.Lower),
			Current: uint64(info.Geo.Current),
			Upper:   uint64(info.Geo.Upper),
		},
		MapSize:    uint64(info.MapSize),
		LastPgNo:   uint64(info.LastPNO),
		LastTxnID:  uint64(info.LastTxnID),
		MaxReaders: uint(info.MaxReaders),
		NumReaders: uint(info.NumReaders),
	}, nil
}

func statFrom(st *mdbx.Stat) *Stat {
	return &Stat{
		PageSize:      uint(st.PSize),
		Depth:         uint(st.Depth),
		BranchPages:   uint64(st.BranchPages),
		LeafPages:     uint64(st.LeafPages),
		OverflowPages: uint64(st.OverflowPages),
		Entries:       uint64(st.Entries),
	}
}

// Freelist returns the number of pages the garbage collector currently
// holds for reuse. It walks the GC table inside a fresh read transaction;
// each record stores a page count in the first machine word of its value.
func (e *Env) Freelist() (uint64, error) {
	tx, err := e.BeginRead()
	if err != nil {
		return 0, err
	}
	defer tx.Abort()

	cur, err := tx.tx.OpenCursor(mdbx.DBI(0))
	if err != nil {
		return 0, wrapEngine(err)
	}
	defer cur.Close()

	wordSize := bits.UintSize / 8
	var pages uint64
	_, v, err := cur.Get(nil, nil, mdbx.First)
	for err == nil {
		if len(v) < wordSize {
			return 0, NewError(ErrCorrupted)
		}
		if bits.UintSize == 64 {
			pages += binary.NativeEndian.Uint64(v)
		} else {
			pages += uint64(binary.NativeEndian.Uint32(v))
		}
		_, v, err = cur.Get(nil, nil, mdbx.Next)
	}
	if !mdbx.IsNotFound(err) {
		return 0, wrapEngine(err)
	}
	return pages, nil
}

// ReaderCheck clears reader slots held by dead processes and returns the
// number of slots that were cleared.
func (e *Env) ReaderCheck() (int, error) {
	if e.closed.Load() {
		return 0, NewError(ErrBadSign)
	}
	n, err := e.env.ReaderCheck()
	if err != nil {
		return 0, wrapEngine(err)
	}
	return n, nil
}

// CopyTo writes a consistent copy of the environment to the file or
// directory at path. With compact set, free pages are omitted and the
// B-tree is renumbered sequentially.
func (e *Env) CopyTo(path string, compact bool) error {
	if e.closed.Load() {
		return NewError(ErrBadSign)
	}
	if compact {
		return wrapEngine(e.env.CopyFlag(path, mdbx.CopyCompact))
	}
	return wrapEngine(e.env.Copy(path))
}

// Path returns the filesystem path the environment was opened with.
func (e *Env) Path() string {
	return e.path
}

// MaxKeySize returns the maximum size of a key that can be stored in a
// table without special flags.
func (e *Env) MaxKeySize() int {
	if e.closed.Load() {
		return 0
	}
	return e.env.MaxKeySize()
}

// stampTable records dbi in the handle table and returns its current
// generation. first reports whether this call created the entry, meaning
// the calling transaction is the one that opened the handle.
func (e *Env) stampTable(dbi mdbx.DBI) (gen uint64, first bool) {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()
	gen, ok := e.handleGen[dbi]
	if !ok {
		gen = 1
		e.handleGen[dbi] = gen
		return gen, true
	}
	return gen, false
}

// checkTable verifies that a Table still refers to a live handle of this
// environment.
func (e *Env) checkTable(t Table) error {
	if t.env != e {
		return NewError(ErrBadDBI)
	}
	e.handleMu.Lock()
	gen := e.handleGen[t.dbi]
	e.handleMu.Unlock()
	if gen != t.gen {
		return NewError(ErrBadDBI)
	}
	return nil
}

// invalidateTable bumps the generation for dbi so existing Table values
// referring to it stop validating.
func (e *Env) invalidateTable(dbi mdbx.DBI) {
	e.handleMu.Lock()
	e.handleGen[dbi]++
	e.handleMu.Unlock()
}
