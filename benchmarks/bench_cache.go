package benchmarks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/Giulio2002/smdbx"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

// Cached benchmark database directory
const benchCacheDir = "testdata/benchdb"

var (
	cacheMu   sync.Mutex
	layerEnvs = make(map[string]*smdbx.Env)
	mdbxEnvs  = make(map[string]*mdbxgo.Env)
	boltDBs   = make(map[string]*bolt.DB)
	rocksDBs  = make(map[string]*gorocksdb.DB)
)

// getCachedPlainDB returns cached plain databases for the layer and the
// native binding, creating and populating them on first use. Both are
// opened without WriteMap so the comparison measures the same engine
// configuration the layer exposes.
func getCachedPlainDB(b *testing.B, size int) (*smdbx.Env, *mdbxgo.Env) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("plain_%d", size)
	layerPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_layer.db", size))
	mdbxPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_mdbx.db", size))

	// Check if already loaded in memory
	if env, ok := layerEnvs[key]; ok {
		return env, mdbxEnvs[key]
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	layerExists := fileExists(layerPath)
	mdbxExists := fileExists(mdbxPath)

	// Setup the layer environment
	env, err := smdbx.Open(layerPath, smdbx.Options{
		NoSubdir:  true,
		MaxTables: 10,
		SyncMode:  smdbx.SyncNoMetaSync,
		Geometry:  &smdbx.Geometry{SizeUpper: 1 << 32, PageSize: 4096}, // 4GB max
	})
	if err != nil {
		b.Fatal(err)
	}

	// Setup the native binding
	runtime.LockOSThread()
	menv, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		env.Close()
		b.Fatal(err)
	}
	menv.SetOption(mdbxgo.OptMaxDB, 10)
	menv.SetGeometry(-1, -1, 1<<32, -1, -1, 4096) // 4GB max
	if err := menv.Open(mdbxPath, mdbxgo.NoSubdir|mdbxgo.NoMetaSync, 0644); err != nil {
		env.Close()
		b.Fatal(err)
	}
	runtime.UnlockOSThread()

	if !layerExists {
		b.Logf("Creating cached layer plain DB with %d keys...", size)
		populatePlainLayer(b, env, size)
	} else {
		b.Logf("Using cached layer plain DB with %d keys", size)
	}

	if !mdbxExists {
		b.Logf("Creating cached mdbx plain DB with %d keys...", size)
		populatePlainMdbx(b, menv, size)
	} else {
		b.Logf("Using cached mdbx plain DB with %d keys", size)
	}

	// An interrupted populate leaves a short file behind, which the
	// existence check above would keep trusting.
	verifyCachedCount(b, env, "bench", size)

	layerEnvs[key] = env
	mdbxEnvs[key] = menv

	return env, menv
}

// getCachedDupSortDB returns cached duplicate-key databases for the layer
// and the native binding.
func getCachedDupSortDB(b *testing.B, numKeys, valsPerKey int) (*smdbx.Env, *mdbxgo.Env) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	total := numKeys * valsPerKey
	key := fmt.Sprintf("dupsort_%d", total)
	layerPath := filepath.Join(benchCacheDir, fmt.Sprintf("dupsort_%d_layer.db", total))
	mdbxPath := filepath.Join(benchCacheDir, fmt.Sprintf("dupsort_%d_mdbx.db", total))

	if env, ok := layerEnvs[key]; ok {
		return env, mdbxEnvs[key]
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	layerExists := fileExists(layerPath)
	mdbxExists := fileExists(mdbxPath)

	env, err := smdbx.Open(layerPath, smdbx.Options{
		NoSubdir:  true,
		MaxTables: 10,
		SyncMode:  smdbx.SyncNoMetaSync,
		Geometry:  &smdbx.Geometry{SizeUpper: 1 << 32, PageSize: 4096},
	})
	if err != nil {
		b.Fatal(err)
	}

	runtime.LockOSThread()
	menv, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		env.Close()
		b.Fatal(err)
	}
	menv.SetOption(mdbxgo.OptMaxDB, 10)
	menv.SetGeometry(-1, -1, 1<<32, -1, -1, 4096)
	if err := menv.Open(mdbxPath, mdbxgo.NoSubdir|mdbxgo.NoMetaSync, 0644); err != nil {
		env.Close()
		b.Fatal(err)
	}
	runtime.UnlockOSThread()

	if !layerExists {
		b.Logf("Creating cached layer dupsort DB with %d keys x %d vals...", numKeys, valsPerKey)
		populateDupSortLayer(b, env, numKeys, valsPerKey)
	} else {
		b.Logf("Using cached layer dupsort DB with %d total entries", total)
	}

	if !mdbxExists {
		b.Logf("Creating cached mdbx dupsort DB with %d keys x %d vals...", numKeys, valsPerKey)
		populateDupSortMdbx(b, menv, numKeys, valsPerKey)
	} else {
		b.Logf("Using cached mdbx dupsort DB with %d total entries", total)
	}

	verifyCachedCount(b, env, "dupbench", numKeys)

	layerEnvs[key] = env
	mdbxEnvs[key] = menv

	return env, menv
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// shuffledOrder returns a deterministic permutation of [0, numKeys).
func shuffledOrder(numKeys int) []int {
	order := make([]int, numKeys)
	for i := range order {
		order[i] = i
	}
	// Fisher-Yates with a fixed mixing function, so every run and every
	// engine sees the same access pattern
	for i := len(order) - 1; i > 0; i-- {
		j := int(uint64(i*17+31) % uint64(i+1))
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func populatePlainLayer(b *testing.B, env *smdbx.Env, numKeys int) {
	txn, err := env.BeginWrite()
	if err != nil {
		b.Fatal(err)
	}
	tbl, err := txn.CreateTable("bench", 0)
	if err != nil {
		b.Fatal(err)
	}

	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, 32)

	for i := 0; i < numKeys; i++ {
		binary.BigEndian.PutUint64(key, uint64(i))
		binary.BigEndian.PutUint64(val, uint64(i))

		if err := txn.Put(tbl, key, val, smdbx.Upsert); err != nil {
			b.Fatal(err)
		}

		if (i+1)%batchSize == 0 {
			if _, _, err := txn.Commit(); err != nil {
				b.Fatal(err)
			}
			txn, err = env.BeginWrite()
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	if _, _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

func populatePlainMdbx(b *testing.B, env *mdbxgo.Env, numKeys int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI("bench", mdbxgo.Create, nil, nil)
	if err != nil {
		b.Fatal(err)
	}

	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, 32)

	for i := 0; i < numKeys; i++ {
		binary.BigEndian.PutUint64(key, uint64(i))
		binary.BigEndian.PutUint64(val, uint64(i))

		if err := txn.Put(dbi, key, val, mdbxgo.Upsert); err != nil {
			b.Fatal(err)
		}

		if (i+1)%batchSize == 0 {
			if _, err := txn.Commit(); err != nil {
				b.Fatal(err)
			}
			txn, err = env.BeginTxn(nil, 0)
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	if _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

func populateDupSortLayer(b *testing.B, env *smdbx.Env, numKeys, valsPerKey int) {
	txn, err := env.BeginWrite()
	if err != nil {
		b.Fatal(err)
	}
	tbl, err := txn.CreateTable("dupbench", smdbx.DupSort)
	if err != nil {
		b.Fatal(err)
	}

	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, 16)
	count := 0

	for i := 0; i < numKeys; i++ {
		binary.BigEndian.PutUint64(key, uint64(i))
		for j := 0; j < valsPerKey; j++ {
			binary.BigEndian.PutUint64(val, uint64(j))

			if err := txn.Put(tbl, key, val, smdbx.Upsert); err != nil {
				b.Fatal(err)
			}

			count++
			if count%batchSize == 0 {
				if _, _, err := txn.Commit(); err != nil {
					b.Fatal(err)
				}
				txn, err = env.BeginWrite()
				if err != nil {
					b.Fatal(err)
				}
			}
		}
	}

	if _, _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

func populateDupSortMdbx(b *testing.B, env *mdbxgo.Env, numKeys, valsPerKey int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI("dupbench", mdbxgo.Create|mdbxgo.DupSort, nil, nil)
	if err != nil {
		b.Fatal(err)
	}

	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, 16)
	count := 0

	for i := 0; i < numKeys; i++ {
		binary.BigEndian.PutUint64(key, uint64(i))
		for j := 0; j < valsPerKey; j++ {
			binary.BigEndian.PutUint64(val, uint64(j))

			if err := txn.Put(dbi, key, val, mdbxgo.Upsert); err != nil {
				b.Fatal(err)
			}

			count++
			if count%batchSize == 0 {
				if _, err := txn.Commit(); err != nil {
					b.Fatal(err)
				}
				txn, err = env.BeginTxn(nil, 0)
				if err != nil {
					b.Fatal(err)
				}
			}
		}
	}

	if _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

// verifyCachedCount walks the table through the layer and checks the
// number of distinct keys against what the populate step should have
// written.
func verifyCachedCount(b *testing.B, env *smdbx.Env, tableName string, wantKeys int) {
	txn, err := env.BeginRead()
	if err != nil {
		b.Fatal(err)
	}
	defer txn.Abort()

	tbl, err := txn.OpenTable(tableName)
	if err != nil {
		b.Fatal(err)
	}

	cursor, err := txn.OpenCursor(tbl)
	if err != nil {
		b.Fatal(err)
	}
	defer cursor.Close()

	count := 0
	_, _, ok, err := cursor.First()
	for ok && err == nil {
		count++
		_, _, ok, err = cursor.NextNoDup()
	}
	if err != nil {
		b.Fatal(err)
	}
	if count != wantKeys {
		b.Fatalf("cached %s db has %d keys, want %d: delete %s and re-run", tableName, count, wantKeys, benchCacheDir)
	}
}

// getCachedBoltDB returns a cached BoltDB database, creating it if needed.
func getCachedBoltDB(b *testing.B, size int) *bolt.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("bolt_%d", size)
	boltPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_bolt.db", size))

	if db, ok := boltDBs[key]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	boltExists := fileExists(boltPath)

	db, err := bolt.Open(boltPath, 0644, &bolt.Options{
		NoSync:         true,
		NoFreelistSync: true,
	})
	if err != nil {
		b.Fatal(err)
	}

	if !boltExists {
		b.Logf("Creating cached BoltDB with %d keys...", size)
		populateBoltDB(b, db, size)
	} else {
		b.Logf("Using cached BoltDB with %d keys", size)
	}

	boltDBs[key] = db

	return db
}

func populateBoltDB(b *testing.B, db *bolt.DB, numKeys int) {
	batchSize := 100_000
	key := make([]byte, 8)
	val := make([]byte, 32)

	for written := 0; written < numKeys; written += batchSize {
		batchEnd := written + batchSize
		if batchEnd > numKeys {
			batchEnd = numKeys
		}

		err := db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte("bench"))
			if err != nil {
				return err
			}
			for i := written; i < batchEnd; i++ {
				binary.BigEndian.PutUint64(key, uint64(i))
				binary.BigEndian.PutUint64(val, uint64(i))
				if err := bucket.Put(key, val); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// getCachedRocksDB returns a cached RocksDB database, creating it if needed.
func getCachedRocksDB(b *testing.B, size int) *gorocksdb.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("rocks_%d", size)
	rocksPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_rocks.db", size))

	if db, ok := rocksDBs[key]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	rocksExists := fileExists(rocksPath)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetWriteBufferSize(64 * 1024 * 1024) // 64MB write buffer
	opts.SetMaxWriteBufferNumber(3)
	opts.SetTargetFileSizeBase(64 * 1024 * 1024)

	db, err := gorocksdb.OpenDb(opts, rocksPath)
	if err != nil {
		b.Fatal(err)
	}

	if !rocksExists {
		b.Logf("Creating cached RocksDB with %d keys...", size)
		populateRocksDB(b, db, size)
	} else {
		b.Logf("Using cached RocksDB with %d keys", size)
	}

	rocksDBs[key] = db

	return db
}

func populateRocksDB(b *testing.B, db *gorocksdb.DB, numKeys int) {
	wo := gorocksdb.NewDefaultWriteOptions()
	defer wo.Destroy()

	key := make([]byte, 8)
	val := make([]byte, 32)

	// Batched writes keep population fast
	batch := gorocksdb.NewWriteBatch()
	defer batch.Destroy()

	batchSize := 100_000

	for i := 0; i < numKeys; i++ {
		binary.BigEndian.PutUint64(key, uint64(i))
		binary.BigEndian.PutUint64(val, uint64(i))

		batch.Put(key, val)

		if (i+1)%batchSize == 0 {
			if err := db.Write(wo, batch); err != nil {
				b.Fatal(err)
			}
			batch.Clear()
		}
	}

	if batch.Count() > 0 {
		if err := db.Write(wo, batch); err != nil {
			b.Fatal(err)
		}
	}
}

// CleanupBenchCache closes all cached environments.
// Call this in TestMain or after benchmarks complete.
func CleanupBenchCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	for _, env := range layerEnvs {
		env.Close()
	}
	for _, env := range mdbxEnvs {
		env.Close()
	}
	for _, db := range boltDBs {
		db.Close()
	}
	for _, db := range rocksDBs {
		db.Close()
	}
	layerEnvs = make(map[string]*smdbx.Env)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
}

// DeleteBenchCache removes all cached database files.
func DeleteBenchCache() error {
	return os.RemoveAll(benchCacheDir)
}
