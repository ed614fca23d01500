package smdbx

// iterStep selects the cursor movement an iterator performs. Iterators
// dispatch through it instead of holding engine op codes.
type iterStep int

const (
	stepNext iterStep = iota
	stepFirst
	stepCurrent
	stepNextDup
	stepNextNoDup
)

func (c *Cursor) step(s iterStep) ([]byte, []byte, bool, error) {
	switch s {
	case stepFirst:
		return c.First()
	case stepCurrent:
		return c.GetCurrent()
	case stepNextDup:
		return c.NextDup()
	case stepNextNoDup:
		return c.NextNoDup()
	default:
		return c.Next()
	}
}

// Iter walks table entries through a cursor. A typical loop:
//
//	it := cur.IterStart()
//	for it.Scan() {
//		use(it.Key(), it.Val())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// The key and value slices are only valid until the next Scan, and never
// longer than the transaction.
type Iter struct {
	c       *Cursor
	first   iterStep
	next    iterStep
	started bool
	done    bool
	owned   bool
	err     error
	key     []byte
	val     []byte
}

// Scan advances the iterator and reports whether it is positioned on an
// entry. It returns false at the end of the range and after an error;
// check Err when the loop ends.
func (it *Iter) Scan() bool {
	if it.done || it.err != nil {
		return false
	}
	step := it.next
	if !it.started {
		step = it.first
		it.started = true
	}
	k, v, ok, err := it.c.step(step)
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.key, it.val = k, v
	return true
}

// Key returns the key at the iterator's position.
func (it *Iter) Key() []byte {
	return it.key
}

// Val returns the value at the iterator's position.
func (it *Iter) Val() []byte {
	return it.val
}

// Err returns the first error the iterator encountered, if any. Running
// off the end of the range is not an error.
func (it *Iter) Err() error {
	return it.err
}

// Close stops the iterator and releases its cursor when the iterator
// owns one, as the iterators returned by IterDup.Dups do.
func (it *Iter) Close() {
	it.done = true
	if it.owned {
		it.c.Close()
	}
}

// Iter iterates from the cursor's current position, starting with the
// entry after it.
func (c *Cursor) Iter() *Iter {
	return &Iter{c: c, first: stepNext, next: stepNext}
}

// IterStart iterates the whole table from its first entry.
func (c *Cursor) IterStart() *Iter {
	return &Iter{c: c, first: stepFirst, next: stepNext}
}

// IterFrom iterates from the first key greater than or equal to key. If
// every key is smaller, the iterator is empty.
func (c *Cursor) IterFrom(key []byte) *Iter {
	_, _, ok, err := c.SetRange(key)
	if err != nil {
		return &Iter{err: err}
	}
	if !ok {
		return &Iter{done: true}
	}
	return &Iter{c: c, first: stepCurrent, next: stepNext}
}

// IterDupOf iterates the duplicates stored under key, in order. A key
// that is not present yields an empty iterator.
func (c *Cursor) IterDupOf(key []byte) *Iter {
	_, ok, err := c.Set(key)
	if err != nil {
		return &Iter{err: err}
	}
	if !ok {
		return &Iter{done: true}
	}
	return &Iter{c: c, first: stepCurrent, next: stepNextDup}
}

// IterDup walks the distinct keys of a duplicate-key table. Scan moves
// from key to key; Dups hands out an iterator over the duplicates at the
// current position.
type IterDup struct {
	c       *Cursor
	first   iterStep
	started bool
	done    bool
	err     error
	key     []byte
	val     []byte
}

// Scan advances to the next distinct key and reports whether the
// iterator is positioned on one.
func (it *IterDup) Scan() bool {
	if it.done || it.err != nil {
		return false
	}
	step := stepNextNoDup
	if !it.started {
		step = it.first
		it.started = true
	}
	k, v, ok, err := it.c.step(step)
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.key, it.val = k, v
	return true
}

// Key returns the key at the iterator's position.
func (it *IterDup) Key() []byte {
	return it.key
}

// Err returns the first error the iterator encountered, if any.
func (it *IterDup) Err() error {
	return it.err
}

// Dups returns an iterator over the duplicates at the current position,
// starting from the duplicate the outer iterator landed on. It is backed
// by its own cursor, so advancing the outer iterator does not disturb
// it; Close it to release the cursor.
func (it *IterDup) Dups() *Iter {
	if !it.started || it.done || it.err != nil {
		return &Iter{done: true}
	}
	dc, err := it.c.txn.openCursor(it.c.table)
	if err != nil {
		return &Iter{err: err}
	}
	_, ok, err := dc.GetBoth(it.key, it.val)
	if err != nil || !ok {
		dc.Close()
		if err != nil {
			return &Iter{err: err}
		}
		return &Iter{done: true}
	}
	return &Iter{c: dc, first: stepCurrent, next: stepNextDup, owned: true}
}

// IterDup steps over distinct keys starting with the key after the
// cursor's current one.
func (c *Cursor) IterDup() *IterDup {
	return &IterDup{c: c, first: stepNextNoDup}
}

// IterDupStart steps over distinct keys from the beginning of the table.
func (c *Cursor) IterDupStart() *IterDup {
	return &IterDup{c: c, first: stepFirst}
}

// IterDupFrom steps over distinct keys starting at the first key greater
// than or equal to key.
func (c *Cursor) IterDupFrom(key []byte) *IterDup {
	_, _, ok, err := c.SetRange(key)
	if err != nil {
		return &IterDup{err: err}
	}
	if !ok {
		return &IterDup{done: true}
	}
	return &IterDup{c: c, first: stepCurrent}
}
