//go:build cgo

package s1r

import (
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

// If cgo is enabled, use the mattn cgo sqlite3 driver; it is faster
// than the modernc driver.
const driverName = "sqlite3"

func tunePragmas(db *sqlx.DB) error { return nil }
