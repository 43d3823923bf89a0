//go:build !cgo

package s1r

import (
	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

// Without cgo, fall back to the modernc.org/sqlite pure-Go driver; it
// is slower than the cgo driver but requires no C toolchain.
const driverName = "sqlite"

// tunePragmas disables journaling/sync/auto-vacuum, which matters more
// for this driver since it lacks the cgo driver's native write path.
func tunePragmas(db *sqlx.DB) error {
	_, err := db.Exec(`
	PRAGMA journal_mode = OFF;
	PRAGMA synchronous = OFF;
	PRAGMA auto_vacuum = NONE;
	`)
	return err
}
