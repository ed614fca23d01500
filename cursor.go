package smdbx

import (
	"bytes"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// Cursor navigates one table within a transaction. Positioning methods
// return ok=false with a nil error when there is nothing to move to;
// errors are reserved for real failures. A cursor must be closed before
// its transaction ends.
//
// In a read transaction the returned key and value slices reference the
// environment's memory map and stay valid only until the transaction
// ends; in a write transaction they are copies.
type Cursor struct {
	txn    *txn
	cur    *mdbx.Cursor
	table  Table
	closed bool
}

// RwCursor is a cursor over a write transaction. It can also modify the
// table at its current position.
type RwCursor struct {
	Cursor
}

func (t *txn) openCursor(table Table) (*Cursor, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	if err := t.env.checkTable(table); err != nil {
		return nil, err
	}
	cur, err := t.tx.OpenCursor(table.dbi)
	if err != nil {
		return nil, wrapEngine(err)
	}
	return &Cursor{txn: t, cur: cur, table: table}, nil
}

// OpenCursor opens a cursor over table. The cursor has no position until
// the first positioning call.
func (t *txn) OpenCursor(table Table) (*Cursor, error) {
	return t.openCursor(table)
}

// OpenCursor opens a cursor that can also modify table.
func (t *RwTxn) OpenCursor(table Table) (*RwCursor, error) {
	c, err := t.openCursor(table)
	if err != nil {
		return nil, err
	}
	return &RwCursor{*c}, nil
}

// Table returns the table the cursor navigates.
func (c *Cursor) Table() Table {
	return c.table
}

// Close releases the cursor. Closing twice is harmless.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cur.Close()
}

func (c *Cursor) usable() error {
	if c.closed {
		return NewError(ErrInvalidValue)
	}
	return c.txn.active()
}

// cursorEOF reports whether err is one of the engine's end-of-data
// statuses. Stepping past the last duplicate surfaces ENODATA rather
// than NOTFOUND on some paths.
func cursorEOF(err error) bool {
	if mdbx.IsNotFound(err) {
		return true
	}
	code, ok := engineCode(err)
	return ok && code == ErrNoData
}

func (c *Cursor) got(k, v []byte, err error) ([]byte, []byte, bool, error) {
	if err != nil {
		if cursorEOF(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, wrapEngine(err)
	}
	return k, v, true, nil
}

func (c *Cursor) gotVal(v []byte, err error) ([]byte, bool, error) {
	if err != nil {
		if cursorEOF(err) {
			return nil, false, nil
		}
		return nil, false, wrapEngine(err)
	}
	return v, true, nil
}

// First moves to the first entry of the table. In a duplicate-key table
// it lands on the smallest duplicate of the smallest key.
func (c *Cursor) First() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.First)
	return c.got(k, v, e)
}

// FirstDup moves to the first duplicate of the current key and returns
// its value.
func (c *Cursor) FirstDup() (value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(nil, nil, mdbx.FirstDup)
	return c.gotVal(v, e)
}

// GetBoth positions at the exact key/value pair and returns the stored
// value. ok is false when the pair is absent.
func (c *Cursor) GetBoth(key, value []byte) ([]byte, bool, error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(key, value, mdbx.GetBoth)
	return c.gotVal(v, e)
}

// GetBothRange positions at key and its first duplicate that is greater
// than or equal to value, returning that duplicate.
func (c *Cursor) GetBothRange(key, value []byte) ([]byte, bool, error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(key, value, mdbx.GetBothRange)
	return c.gotVal(v, e)
}

// GetCurrent returns the entry at the cursor position. ok is false when
// the cursor has no position or the entry was deleted under it.
func (c *Cursor) GetCurrent() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.GetCurrent)
	return c.got(k, v, e)
}

// GetMultiple returns up to a page of duplicates of the current key in a
// single slice of fixed-size items. The table must be DupFixed; use
// WrapMulti to index the slice.
func (c *Cursor) GetMultiple() (value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(nil, nil, mdbx.GetMultiple)
	return c.gotVal(v, e)
}

// Last moves to the last entry of the table. In a duplicate-key table it
// lands on the largest duplicate of the largest key.
func (c *Cursor) Last() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.Last)
	return c.got(k, v, e)
}

// LastDup moves to the last duplicate of the current key and returns its
// value.
func (c *Cursor) LastDup() (value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(nil, nil, mdbx.LastDup)
	return c.gotVal(v, e)
}

// Next moves to the next entry, stepping through every duplicate of a
// key before advancing to the following key.
func (c *Cursor) Next() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.Next)
	return c.got(k, v, e)
}

// NextDup moves to the next duplicate of the current key. ok is false at
// the last duplicate.
func (c *Cursor) NextDup() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.NextDup)
	return c.got(k, v, e)
}

// NextMultiple returns the next page of duplicates of the current key,
// continuing a GetMultiple sequence.
func (c *Cursor) NextMultiple() (value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(nil, nil, mdbx.NextMultiple)
	return c.gotVal(v, e)
}

// NextNoDup moves to the first duplicate of the next key, skipping the
// remaining duplicates of the current one.
func (c *Cursor) NextNoDup() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.NextNoDup)
	return c.got(k, v, e)
}

// Prev moves to the previous entry, stepping through duplicates in
// reverse before moving to the preceding key.
func (c *Cursor) Prev() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.Prev)
	return c.got(k, v, e)
}

// PrevDup moves to the previous duplicate of the current key.
func (c *Cursor) PrevDup() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.PrevDup)
	return c.got(k, v, e)
}

// PrevMultiple returns the previous page of duplicates of the current
// key.
func (c *Cursor) PrevMultiple() (value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(nil, nil, mdbx.PrevMultiple)
	return c.gotVal(v, e)
}

// PrevNoDup moves to the last duplicate of the previous key.
func (c *Cursor) PrevNoDup() (key, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	k, v, e := c.cur.Get(nil, nil, mdbx.PrevNoDup)
	return c.got(k, v, e)
}

// Set positions at key exactly and returns its value. For duplicate-key
// tables the cursor lands on the first duplicate.
func (c *Cursor) Set(key []byte) (value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, false, err
	}
	_, v, e := c.cur.Get(key, nil, mdbx.Set)
	return c.gotVal(v, e)
}

// SetKey behaves like Set but also returns the key as stored in the
// table.
func (c *Cursor) SetKey(key []byte) (k, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	rk, v, e := c.cur.Get(key, nil, mdbx.SetKey)
	return c.got(rk, v, e)
}

// SetRange positions at the first key greater than or equal to the given
// key.
func (c *Cursor) SetRange(key []byte) (k, value []byte, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, err
	}
	rk, v, e := c.cur.Get(key, nil, mdbx.SetRange)
	return c.got(rk, v, e)
}

// SetLowerBound positions at the first entry with key greater than or
// equal to the given key and additionally reports whether the match was
// exact.
func (c *Cursor) SetLowerBound(key []byte) (k, value []byte, exact, ok bool, err error) {
	if err := c.usable(); err != nil {
		return nil, nil, false, false, err
	}
	rk, v, e := c.cur.Get(key, nil, mdbx.SetRange)
	if e != nil {
		if cursorEOF(e) {
			return nil, nil, false, false, nil
		}
		return nil, nil, false, false, wrapEngine(e)
	}
	return rk, v, bytes.Equal(rk, key), true, nil
}

// Count returns the number of duplicates stored under the current key.
func (c *Cursor) Count() (uint64, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	n, err := c.cur.Count()
	if err != nil {
		return 0, wrapEngine(err)
	}
	return n, nil
}

// Put stores a key/value pair through the cursor and leaves the cursor
// on the new entry.
func (c *RwCursor) Put(key, value []byte, flags PutFlags) error {
	if err := c.usable(); err != nil {
		return err
	}
	return wrapEngine(c.cur.Put(key, value, uint(flags)))
}

// PutReserve stores key with an uninitialized value of n bytes and
// returns a slice into the value's final location. The caller must fill
// it before the transaction commits.
func (c *RwCursor) PutReserve(key []byte, n int, flags PutFlags) ([]byte, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	buf, err := c.cur.PutReserve(key, n, uint(flags))
	if err != nil {
		return nil, wrapEngine(err)
	}
	return buf, nil
}

// PutMulti stores a contiguous page of fixed-size values under key in
// one call. The table must be DupFixed and stride must be the value
// size.
func (c *RwCursor) PutMulti(key, page []byte, stride int, flags PutFlags) error {
	if err := c.usable(); err != nil {
		return err
	}
	return wrapEngine(c.cur.PutMulti(key, page, stride, uint(flags)))
}

// Del deletes the entry at the cursor position. With AllDups every
// duplicate of the current key is deleted.
func (c *RwCursor) Del(flags PutFlags) error {
	if err := c.usable(); err != nil {
		return err
	}
	return wrapEngine(c.cur.Del(uint(flags)))
}

// Multi presents a page of fixed-size values, as returned by GetMultiple
// and NextMultiple, as an indexed collection.
type Multi struct {
	page   []byte
	stride int
}

// WrapMulti interprets page as a run of contiguous values, each stride
// bytes long.
func WrapMulti(page []byte, stride int) *Multi {
	return &Multi{page: page, stride: stride}
}

// Len returns the number of values in the page.
func (m *Multi) Len() int {
	if m.stride == 0 {
		return 0
	}
	return len(m.page) / m.stride
}

// Val returns the value at index i, or nil if i is out of range.
func (m *Multi) Val(i int) []byte {
	if m.stride == 0 || i < 0 || (i+1)*m.stride > len(m.page) {
		return nil
	}
	return m.page[i*m.stride : (i+1)*m.stride]
}

// Vals splits the page into its individual values.
func (m *Multi) Vals() [][]byte {
	n := m.Len()
	if n == 0 {
		return nil
	}
	vals := make([][]byte, n)
	for i := range vals {
		vals[i] = m.page[i*m.stride : (i+1)*m.stride]
	}
	return vals
}

// Stride returns the size of each value.
func (m *Multi) Stride() int {
	return m.stride
}

// Page returns the underlying page slice.
func (m *Multi) Page() []byte {
	return m.page
}
