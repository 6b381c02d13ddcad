package durastore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdb/durastore/internal/record"
)

// flipLastRecordCRCByte locates the last record in the WAL file at path and
// inverts the first byte of its CRC field, simulating on-disk bit rot for the
// CRC-detection property test (P7).
func flipLastRecordCRCByte(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	offset := 0
	lastStart := 0
	for offset < len(data) {
		_, n, err := record.Decode(data[offset:])
		require.NoError(t, err)
		lastStart = offset
		offset += n
	}

	data[lastStart+1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))
}
