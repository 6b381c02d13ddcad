package durastore

import (
	"errors"
	"fmt"

	"github.com/flashdb/durastore/internal/record"
)

// ErrBadEncoding is returned by the KV store's numeric operations
// (IncrementOrInit, Decrement, ReadNumber) when a key's current value exists
// but is not exactly 8 bytes long.
var ErrBadEncoding = errors.New("durastore: value is not an 8-byte number")

// ErrCorruptLog is wrapped into errors returned by Open* when recovery fails
// because a WAL record couldn't be parsed (backward recovery failing on its
// own is not an error: it just triggers a silent fallback to forward scan).
// internal/record.ErrCorrupt is unreachable from outside this module, so
// this sentinel is what external callers can actually match with errors.Is.
var ErrCorruptLog = errors.New("durastore: corrupt WAL record")

// wrapOpenErr formats the error an Open*Store constructor returns, adding
// ErrCorruptLog to the chain when the underlying failure was a WAL parse
// error rather than an I/O problem (rename, stat, mmap).
func wrapOpenErr(component string, err error) error {
	if errors.Is(err, record.ErrCorrupt) {
		return fmt.Errorf("durastore: open %s: %w: %w", component, ErrCorruptLog, err)
	}
	return fmt.Errorf("durastore: open %s: %w", component, err)
}
