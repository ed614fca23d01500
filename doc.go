// Package smdbx is a safe Go layer over the MDBX embedded transactional
// key-value database.
//
// smdbx narrows the raw engine binding to an API where lifetime and
// ownership mistakes surface as typed errors instead of undefined
// behavior: read-only and read-write transactions are distinct types,
// write transactions are serialized through a writer thread owned by the
// environment, and table handles are validated against the environment
// on every use.
//
// Key features:
//   - Typed environment options for geometry, durability and limits
//   - Read-only transactions with Reset/Renew reader slot recycling
//   - Single writer, multiple readers concurrency model
//   - Named tables with sorted duplicate support
//   - Cursors with the full MDBX positioning set and iterator adapters
//   - Engine-compatible error codes with errors.Is/As support
//
// Basic usage:
//
//	env, err := smdbx.Open("/path/to/db", smdbx.Options{MaxTables: 16})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	err = env.Update(func(txn *smdbx.RwTxn) error {
//	    table, err := txn.CreateTable("accounts", 0)
//	    if err != nil {
//	        return err
//	    }
//	    return txn.Put(table, []byte("alice"), []byte("100"), 0)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = env.View(func(txn *smdbx.Txn) error {
//	    table, err := txn.OpenTable("accounts")
//	    if err != nil {
//	        return err
//	    }
//	    balance, ok, err := txn.Get(table, []byte("alice"))
//	    if err != nil {
//	        return err
//	    }
//	    if ok {
//	        fmt.Printf("alice: %s\n", balance)
//	    }
//	    return nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
package smdbx
