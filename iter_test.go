package smdbx

import (
	"fmt"
	"sort"
	"testing"
)

func TestIterStartOrder(t *testing.T) {
	env := testEnv(t)

	var want []string
	err := env.Update(func(txn *RwTxn) error {
		tbl, err := txn.CreateTable("data", 0)
		if err != nil {
			return err
		}
		// Insert in reverse so the walk order comes from the tree
		for i := 99; i >= 0; i-- {
			key := fmt.Sprintf("key%d", i)
			want = append(want, key)
			if err := txn.Put(tbl, []byte(key), []byte("v"), 0); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	sort.Strings(want)

	err = env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("data")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		var got []string
		it := cur.IterStart()
		for it.Scan() {
			got = append(got, string(it.Key()))
		}
		if err := it.Err(); err != nil {
			return err
		}
		if len(got) != len(want) {
			t.Fatalf("walked %d keys, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("key %d: got %q, want %q", i, got[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterContinues(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "data", 0, [][2]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"},
	})

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("data")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		if _, ok, err := cur.Set([]byte("b")); err != nil || !ok {
			t.Fatalf("Set: got ok=%v err=%v", ok, err)
		}

		// Iter picks up after the current position
		var got []string
		it := cur.Iter()
		for it.Scan() {
			got = append(got, string(it.Key()))
		}
		if err := it.Err(); err != nil {
			return err
		}
		if len(got) != 2 || got[0] != "c" || got[1] != "d" {
			t.Errorf("keys after b: got %v, want [c d]", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterFrom(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "data", 0, [][2]string{
		{"b", "2"}, {"d", "4"}, {"f", "6"},
	})

	collect := func(txn *Txn, tbl Table, from string) ([]string, error) {
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return nil, err
		}
		defer cur.Close()
		var got []string
		it := cur.IterFrom([]byte(from))
		for it.Scan() {
			got = append(got, string(it.Key()))
		}
		return got, it.Err()
	}

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("data")
		if err != nil {
			return err
		}

		// Starting on an existing key includes it
		got, err := collect(txn, tbl, "d")
		if err != nil {
			return err
		}
		if len(got) != 2 || got[0] != "d" || got[1] != "f" {
			t.Errorf("from d: got %v, want [d f]", got)
		}

		// Starting between keys rounds up
		got, err = collect(txn, tbl, "c")
		if err != nil {
			return err
		}
		if len(got) != 2 || got[0] != "d" {
			t.Errorf("from c: got %v, want [d f]", got)
		}

		// Past the end yields an empty iterator, not an error
		got, err = collect(txn, tbl, "x")
		if err != nil {
			return err
		}
		if len(got) != 0 {
			t.Errorf("from x: got %v, want none", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterClose(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "data", 0, [][2]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"},
	})

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("data")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		it := cur.IterStart()
		if !it.Scan() {
			t.Fatalf("Scan: got false, want true (err=%v)", it.Err())
		}
		it.Close()
		if it.Scan() {
			t.Error("Scan after Close: got true, want false")
		}
		if it.Err() != nil {
			t.Errorf("Err after Close: got %v, want nil", it.Err())
		}

		// Closing the iterator leaves the shared cursor usable
		if _, _, ok, err := cur.First(); err != nil || !ok {
			t.Errorf("First after iterator Close: got ok=%v err=%v", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterDupOfOrder(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "multi", DupSort, [][2]string{
		{"k", "v3"}, {"k", "v1"}, {"k", "v2"},
		{"other", "x"},
	})

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("multi")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		// Duplicates come back sorted regardless of insert order
		var got []string
		it := cur.IterDupOf([]byte("k"))
		for it.Scan() {
			got = append(got, string(it.Val()))
		}
		if err := it.Err(); err != nil {
			return err
		}
		if len(got) != 3 || got[0] != "v1" || got[1] != "v2" || got[2] != "v3" {
			t.Errorf("dups: got %v, want [v1 v2 v3]", got)
		}

		// An absent key yields an empty iterator with no error
		it = cur.IterDupOf([]byte("missing"))
		if it.Scan() {
			t.Error("Scan on absent key: got true, want false")
		}
		if it.Err() != nil {
			t.Errorf("Err on absent key: got %v, want nil", it.Err())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterDupWalk(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "multi", DupSort, [][2]string{
		{"a", "a1"}, {"a", "a2"},
		{"b", "b1"},
		{"c", "c1"}, {"c", "c2"}, {"c", "c3"},
	})
	wantDups := map[string][]string{
		"a": {"a1", "a2"},
		"b": {"b1"},
		"c": {"c1", "c2", "c3"},
	}

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("multi")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		var keys []string
		it := cur.IterDupStart()
		for it.Scan() {
			key := string(it.Key())
			keys = append(keys, key)

			dups := it.Dups()
			var vals []string
			for dups.Scan() {
				vals = append(vals, string(dups.Val()))
			}
			if err := dups.Err(); err != nil {
				return err
			}
			dups.Close()

			want := wantDups[key]
			if len(vals) != len(want) {
				t.Errorf("key %q: got %d dups %v, want %v", key, len(vals), vals, want)
				continue
			}
			for i := range want {
				if vals[i] != want[i] {
					t.Errorf("key %q dup %d: got %q, want %q", key, i, vals[i], want[i])
				}
			}
		}
		if err := it.Err(); err != nil {
			return err
		}
		if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
			t.Errorf("distinct keys: got %v, want [a b c]", keys)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterDupFrom(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "multi", DupSort, [][2]string{
		{"a", "1"}, {"b", "2"}, {"b", "3"}, {"c", "4"},
	})

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("multi")
		if err != nil {
			return err
		}

		collect := func(from string) ([]string, error) {
			cur, err := txn.OpenCursor(tbl)
			if err != nil {
				return nil, err
			}
			defer cur.Close()
			var keys []string
			it := cur.IterDupFrom([]byte(from))
			for it.Scan() {
				keys = append(keys, string(it.Key()))
			}
			return keys, it.Err()
		}

		keys, err := collect("b")
		if err != nil {
			return err
		}
		if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
			t.Errorf("from b: got %v, want [b c]", keys)
		}

		keys, err = collect("bb")
		if err != nil {
			return err
		}
		if len(keys) != 1 || keys[0] != "c" {
			t.Errorf("from bb: got %v, want [c]", keys)
		}

		keys, err = collect("z")
		if err != nil {
			return err
		}
		if len(keys) != 0 {
			t.Errorf("from z: got %v, want none", keys)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterDupDupsIndependent(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "multi", DupSort, [][2]string{
		{"a", "a1"}, {"a", "a2"}, {"a", "a3"},
		{"b", "b1"},
	})

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("multi")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		it := cur.IterDupStart()
		if !it.Scan() {
			t.Fatalf("Scan: got false, want true (err=%v)", it.Err())
		}
		dups := it.Dups()
		defer dups.Close()

		// Advancing the outer iterator does not move the inner one
		if !it.Scan() || string(it.Key()) != "b" {
			t.Fatalf("outer Scan: key %q err=%v, want \"b\"", it.Key(), it.Err())
		}
		var vals []string
		for dups.Scan() {
			vals = append(vals, string(dups.Val()))
		}
		if err := dups.Err(); err != nil {
			return err
		}
		if len(vals) != 3 || vals[0] != "a1" || vals[2] != "a3" {
			t.Errorf("inner dups: got %v, want [a1 a2 a3]", vals)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestIterDupDupsBeforeScan(t *testing.T) {
	env := testEnv(t)
	fillTable(t, env, "multi", DupSort, [][2]string{{"a", "1"}})

	err := env.View(func(txn *Txn) error {
		tbl, err := txn.OpenTable("multi")
		if err != nil {
			return err
		}
		cur, err := txn.OpenCursor(tbl)
		if err != nil {
			return err
		}
		defer cur.Close()

		it := cur.IterDupStart()
		dups := it.Dups()
		if dups.Scan() {
			t.Error("Dups before Scan: got an entry, want none")
		}
		if dups.Err() != nil {
			t.Errorf("Dups before Scan: got error %v", dups.Err())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}
