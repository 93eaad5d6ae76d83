// Package db opens and migrates the SQLite metastore that holds dataset
// registrations, run history, watermarks, API keys, and the audit log.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// poolMode selects the pragmas and sizing for one side of the pool pair.
type poolMode string

const (
	modeWrite poolMode = "write"
	modeRead  poolMode = "read"
)

const pingTimeout = 5 * time.Second

// OpenSQLitePair opens the metastore twice: a single-connection write pool
// and a sized read pool. SQLite allows one writer at a time, so the executor
// and the API mutate through writeDB while list and detail queries fan out
// over readDB without queueing behind loads.
//
// readMaxOpen sizes the read pool; 0 means 4.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = openPool(path, modeWrite, 0)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = openPool(path, modeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func openPool(path string, mode poolMode, maxOpen int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite3", metastoreDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open metastore (%s): %w", mode, err)
	}

	if mode == modeWrite {
		pool.SetMaxOpenConns(1)
		pool.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = 4
		}
		pool.SetMaxOpenConns(maxOpen)
		pool.SetMaxIdleConns(maxOpen)
	}
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping metastore (%s): %w", mode, err)
	}
	return pool, nil
}

// metastoreDSN appends the go-sqlite3 connection parameters: WAL so readers
// never block the writer, a 5s busy timeout instead of SQLITE_BUSY, NORMAL
// sync (safe under WAL), and enforced foreign keys. The write pool also takes
// _txlock=immediate so its transactions grab the write lock up front.
func metastoreDSN(path string, mode poolMode) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if mode == modeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
