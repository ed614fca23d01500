package smdbx

import (
	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// Transaction states. A read transaction moves to txnInactive on Reset and
// back to txnActive on Renew; Commit and Abort move any transaction to
// txnDone, after which every operation fails with ErrBadTxn.
const (
	txnActive = iota
	txnInactive
	txnDone
)

// txn carries the parts shared by read-only and read-write transactions.
type txn struct {
	env   *Env
	tx    *mdbx.Txn
	rw    bool
	state int

	// opened lists table handles first opened by this transaction. They
	// stay private until the transaction commits; if it aborts instead,
	// the engine closes them, so the Env generation is bumped.
	opened []mdbx.DBI
}

func (t *txn) active() error {
	if t.state != txnActive {
		return NewError(ErrBadTxn)
	}
	if t.env.closed.Load() {
		return NewError(ErrBadSign)
	}
	return nil
}

func (t *txn) invalidateOpened() {
	for _, dbi := range t.opened {
		t.env.invalidateTable(dbi)
	}
	t.opened = nil
}

// ID returns the transaction's MVCC snapshot number, or 0 if the
// transaction is not active.
func (t *txn) ID() uint64 {
	if t.state != txnActive {
		return 0
	}
	return uint64(t.tx.ID())
}

// Get returns the value stored under key in table. The second return
// value reports whether the key was present. For duplicate-key tables the
// first duplicate is returned.
//
// In a read transaction the returned slice references the environment's
// memory map and is valid only until the transaction ends; copy it if it
// must outlive the transaction.
func (t *txn) Get(table Table, key []byte) ([]byte, bool, error) {
	if err := t.active(); err != nil {
		return nil, false, err
	}
	if err := t.env.checkTable(table); err != nil {
		return nil, false, err
	}
	v, err := t.tx.Get(table.dbi, key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, wrapEngine(err)
	}
	return v, true, nil
}

// Commit makes all changes of the transaction durable according to the
// environment's sync mode and finishes the transaction. For a read
// transaction it simply releases the reader slot. The boolean reports
// whether the engine signaled a special success status, when the binding
// exposes that distinction.
func (t *txn) Commit() (bool, CommitLatency, error) {
	if err := t.active(); err != nil {
		return false, CommitLatency{}, err
	}
	t.state = txnDone
	var (
		latency mdbx.CommitLatency
		err     error
	)
	if t.rw && t.env.worker != nil {
		latency, err = t.env.worker.commit(t.tx)
	} else {
		latency, err = t.tx.Commit()
	}
	ok, err := engineResult(err)
	if err != nil {
		// A failed commit aborts the transaction inside the engine,
		// taking its private handles with it.
		t.invalidateOpened()
		return false, CommitLatency{}, err
	}
	t.opened = nil
	return ok, commitLatencyFrom(latency), nil
}

// Abort discards the transaction. Calling Abort on an already finished
// transaction does nothing.
func (t *txn) Abort() {
	if t.state == txnDone {
		return
	}
	t.state = txnDone
	if t.env.closed.Load() {
		return
	}
	if t.rw && t.env.worker != nil {
		t.env.worker.abort(t.tx)
	} else {
		t.tx.Abort()
	}
	t.invalidateOpened()
}

// Txn is a read-only transaction. It observes a fixed snapshot of the
// environment and holds a reader slot until it ends or is Reset.
type Txn struct {
	txn
}

// Reset releases the transaction's reader slot but keeps the handle
// alive for a later Renew. Between Reset and Renew the transaction cannot
// be used; only Renew and Abort are valid. Resetting a transaction that
// is not active does nothing.
func (t *Txn) Reset() {
	if t.state != txnActive {
		return
	}
	t.state = txnInactive
	t.tx.Reset()
	t.invalidateOpened()
}

// Renew rebinds a reset transaction to the current snapshot, acquiring a
// fresh reader slot. Renewing a transaction that was not reset fails with
// ErrBadTxn.
func (t *Txn) Renew() error {
	if t.state != txnInactive {
		return NewError(ErrBadTxn)
	}
	if t.env.closed.Load() {
		return NewError(ErrBadSign)
	}
	if err := t.tx.Renew(); err != nil {
		return wrapEngine(err)
	}
	t.state = txnActive
	return nil
}

// RwTxn is a read-write transaction. In addition to the read operations
// it can modify tables and carry nested transactions. The environment
// allows one write transaction at a time.
type RwTxn struct {
	txn
}

// Put stores a key/value pair in table. By default an existing value
// under key is overwritten; for duplicate-key tables the pair is added to
// the key's set. The flags alter this, see PutFlags.
func (t *RwTxn) Put(table Table, key, value []byte, flags PutFlags) error {
	if err := t.active(); err != nil {
		return err
	}
	if err := t.env.checkTable(table); err != nil {
		return err
	}
	return wrapEngine(t.tx.Put(table.dbi, key, value, uint(flags)))
}

// PutReserve stores key with an uninitialized value of n bytes and
// returns a slice into the value's final location. The caller must fill
// the slice before the transaction commits and must not touch it after.
func (t *RwTxn) PutReserve(table Table, key []byte, n int, flags PutFlags) ([]byte, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	if err := t.env.checkTable(table); err != nil {
		return nil, err
	}
	buf, err := t.tx.PutReserve(table.dbi, key, n, uint(flags))
	if err != nil {
		return nil, wrapEngine(err)
	}
	return buf, nil
}

// Del removes key from table and reports whether anything was deleted.
// With a non-nil value only the exactly matching duplicate is removed;
// with nil, all duplicates under key are.
func (t *RwTxn) Del(table Table, key, value []byte) (bool, error) {
	if err := t.active(); err != nil {
		return false, err
	}
	if err := t.env.checkTable(table); err != nil {
		return false, err
	}
	if err := t.tx.Del(table.dbi, key, value); err != nil {
		if mdbx.IsNotFound(err) {
			return false, nil
		}
		return false, wrapEngine(err)
	}
	return true, nil
}

// BeginNested starts a transaction nested inside t. Until the nested
// transaction finishes, t must not be used. On commit the nested changes
// become part of t; on abort they disappear while t stays intact.
func (t *RwTxn) BeginNested() (*RwTxn, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	tx, err := t.env.worker.begin(t.tx)
	if err != nil {
		return nil, wrapEngine(err)
	}
	return &RwTxn{txn{env: t.env, tx: tx, rw: true, state: txnActive}}, nil
}
