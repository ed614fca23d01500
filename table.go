package smdbx

import (
	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// Table is a handle to a named key space inside an environment. The empty
// name refers to the root table, which always exists. A Table obtained in
// one transaction may be reused in later transactions of the same
// environment while the handle stays live: dropping the table, or
// aborting the transaction that first opened the handle, invalidates it
// and later uses fail with ErrBadDBI.
type Table struct {
	env  *Env
	dbi  mdbx.DBI
	gen  uint64
	name string
}

// Name returns the table's name. The root table has the empty name.
func (t Table) Name() string {
	return t.name
}

// OpenTable opens an existing table. Opening a named table that does not
// exist fails with ErrNotFound; use RwTxn.CreateTable to create one.
func (t *txn) OpenTable(name string) (Table, error) {
	if err := t.active(); err != nil {
		return Table{}, err
	}
	var (
		dbi mdbx.DBI
		err error
	)
	if name == "" {
		dbi, err = t.tx.OpenRoot(0)
	} else {
		dbi, err = t.tx.OpenDBISimple(name, 0)
	}
	if err != nil {
		return Table{}, wrapEngine(err)
	}
	return t.adoptTable(name, dbi), nil
}

// adoptTable registers the handle with the environment and remembers it
// on the transaction when this transaction is the one that opened it.
func (t *txn) adoptTable(name string, dbi mdbx.DBI) Table {
	gen, first := t.env.stampTable(dbi)
	if first {
		t.opened = append(t.opened, dbi)
	}
	return Table{env: t.env, dbi: dbi, gen: gen, name: name}
}

// TableStat returns B-tree statistics for one table.
func (t *txn) TableStat(table Table) (*Stat, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	if err := t.env.checkTable(table); err != nil {
		return nil, err
	}
	st, err := t.tx.StatDBI(table.dbi)
	if err != nil {
		return nil, wrapEngine(err)
	}
	return statFrom(st), nil
}

// CreateTable opens table name, creating it if needed. The flags choose
// key ordering and duplicate handling; for an existing table they must
// match the flags it was created with. The empty name opens the root
// table, whose flags cannot be redefined.
func (t *RwTxn) CreateTable(name string, flags TableFlags) (Table, error) {
	if err := t.active(); err != nil {
		return Table{}, err
	}
	var (
		dbi mdbx.DBI
		err error
	)
	if name == "" {
		dbi, err = t.tx.OpenRoot(uint(flags))
	} else {
		dbi, err = t.tx.OpenDBISimple(name, uint(flags)|mdbx.Create)
	}
	if err != nil {
		return Table{}, wrapEngine(err)
	}
	return t.adoptTable(name, dbi), nil
}

// ClearTable removes every entry from table but keeps the table itself.
func (t *RwTxn) ClearTable(table Table) error {
	if err := t.active(); err != nil {
		return err
	}
	if err := t.env.checkTable(table); err != nil {
		return err
	}
	return wrapEngine(t.tx.Drop(table.dbi, false))
}

// DropTable removes table with all its contents and closes the handle.
// Every Table value referring to it stops validating immediately. Other
// transactions must not be holding the same table open when it is
// dropped.
func (t *RwTxn) DropTable(table Table) error {
	if err := t.active(); err != nil {
		return err
	}
	if err := t.env.checkTable(table); err != nil {
		return err
	}
	if err := t.tx.Drop(table.dbi, true); err != nil {
		return wrapEngine(err)
	}
	t.env.invalidateTable(table.dbi)
	return nil
}
