package benchmarks

import (
	"encoding/binary"
	"runtime"
	"testing"

	mdbxgo "github.com/erigontech/mdbx-go/mdbx"

	"github.com/Giulio2002/smdbx"
)

// Benchmark duplicate-key cursor operations with large duplicate runs.
// This exercises the duplicate sub-tree descent path.

const (
	dupBenchKeys = 1000
	dupBenchVals = 1000
)

func openLayerDupCursor(b *testing.B) (*smdbx.Cursor, func()) {
	env, _ := getCachedDupSortDB(b, dupBenchKeys, dupBenchVals)

	txn, err := env.BeginRead()
	if err != nil {
		b.Fatal(err)
	}
	tbl, err := txn.OpenTable("dupbench")
	if err != nil {
		txn.Abort()
		b.Fatal(err)
	}
	cursor, err := txn.OpenCursor(tbl)
	if err != nil {
		txn.Abort()
		b.Fatal(err)
	}
	return cursor, func() {
		cursor.Close()
		txn.Abort()
	}
}

func openMdbxDupCursor(b *testing.B) (*mdbxgo.Cursor, func()) {
	_, menv := getCachedDupSortDB(b, dupBenchKeys, dupBenchVals)

	runtime.LockOSThread()

	txn, err := menv.BeginTxn(nil, mdbxgo.Readonly)
	if err != nil {
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI("dupbench", 0, nil, nil)
	if err != nil {
		txn.Abort()
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	cursor, err := txn.OpenCursor(dbi)
	if err != nil {
		txn.Abort()
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	return cursor, func() {
		cursor.Close()
		txn.Abort()
		runtime.UnlockOSThread()
	}
}

func BenchmarkDupSortNextNoDup_Layer(b *testing.B) {
	cursor, done := openLayerDupCursor(b)
	defer done()

	// Warm up
	for i := 0; i < 10; i++ {
		cursor.First()
		for {
			if _, _, ok, err := cursor.NextNoDup(); !ok || err != nil {
				break
			}
		}
	}

	b.ResetTimer()
	count := 0
	for i := 0; i < b.N; i++ {
		cursor.First()
		for {
			if _, _, ok, err := cursor.NextNoDup(); !ok || err != nil {
				break
			}
			count++
		}
	}
	b.ReportMetric(float64(count)/float64(b.N), "keys/iter")
}

func BenchmarkDupSortNextNoDup_Mdbx(b *testing.B) {
	cursor, done := openMdbxDupCursor(b)
	defer done()

	// Warm up
	for i := 0; i < 10; i++ {
		cursor.Get(nil, nil, mdbxgo.First)
		for {
			if _, _, err := cursor.Get(nil, nil, mdbxgo.NextNoDup); err != nil {
				break
			}
		}
	}

	b.ResetTimer()
	count := 0
	for i := 0; i < b.N; i++ {
		cursor.Get(nil, nil, mdbxgo.First)
		for {
			if _, _, err := cursor.Get(nil, nil, mdbxgo.NextNoDup); err != nil {
				break
			}
			count++
		}
	}
	b.ReportMetric(float64(count)/float64(b.N), "keys/iter")
}

func BenchmarkDupSortSetFirstDup_Layer(b *testing.B) {
	cursor, done := openLayerDupCursor(b)
	defer done()

	key := make([]byte, 8)

	// Warm up
	for i := 0; i < 10; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Set(key)
		cursor.FirstDup()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Set(key)
		cursor.FirstDup()
	}
}

func BenchmarkDupSortSetFirstDup_Mdbx(b *testing.B) {
	cursor, done := openMdbxDupCursor(b)
	defer done()

	key := make([]byte, 8)

	// Warm up
	for i := 0; i < 10; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Get(key, nil, mdbxgo.Set)
		cursor.Get(nil, nil, mdbxgo.FirstDup)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Get(key, nil, mdbxgo.Set)
		cursor.Get(nil, nil, mdbxgo.FirstDup)
	}
}

func BenchmarkDupSortSetLastDup_Layer(b *testing.B) {
	cursor, done := openLayerDupCursor(b)
	defer done()

	key := make([]byte, 8)

	// Warm up
	for i := 0; i < 10; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Set(key)
		cursor.LastDup()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Set(key)
		cursor.LastDup()
	}
}

func BenchmarkDupSortSetLastDup_Mdbx(b *testing.B) {
	cursor, done := openMdbxDupCursor(b)
	defer done()

	key := make([]byte, 8)

	// Warm up
	for i := 0; i < 10; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Get(key, nil, mdbxgo.Set)
		cursor.Get(nil, nil, mdbxgo.LastDup)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Get(key, nil, mdbxgo.Set)
		cursor.Get(nil, nil, mdbxgo.LastDup)
	}
}

func BenchmarkDupSortGetBoth_Layer(b *testing.B) {
	cursor, done := openLayerDupCursor(b)
	defer done()

	key := make([]byte, 8)
	val := make([]byte, 16)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		binary.BigEndian.PutUint64(val, uint64(i%dupBenchVals))
		cursor.GetBoth(key, val)
	}
}

func BenchmarkDupSortGetBoth_Mdbx(b *testing.B) {
	cursor, done := openMdbxDupCursor(b)
	defer done()

	key := make([]byte, 8)
	val := make([]byte, 16)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		binary.BigEndian.PutUint64(val, uint64(i%dupBenchVals))
		cursor.Get(key, val, mdbxgo.GetBoth)
	}
}

func BenchmarkDupSortCount_Layer(b *testing.B) {
	cursor, done := openLayerDupCursor(b)
	defer done()

	key := make([]byte, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Set(key)
		cursor.Count()
	}
}

func BenchmarkDupSortCount_Mdbx(b *testing.B) {
	cursor, done := openMdbxDupCursor(b)
	defer done()

	key := make([]byte, 8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		binary.BigEndian.PutUint64(key, uint64(i%dupBenchKeys))
		cursor.Get(key, nil, mdbxgo.Set)
		cursor.Count()
	}
}
