package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDecode_RoundTrip(t *testing.T) {
	var buf []byte
	buf = Append(buf, Put, []byte("payload-one"), 0)
	firstLen := len(buf)
	buf = Append(buf, Delete, []byte("k"), uint32(firstLen))

	rec, n, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, firstLen, n)
	assert.Equal(t, Put, rec.Action)
	assert.Equal(t, []byte("payload-one"), rec.Data)
	assert.Equal(t, uint32(0), rec.StartOffset)

	rec2, n2, err := Decode(buf[n:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-n, n2)
	assert.Equal(t, Delete, rec2.Action)
	assert.Equal(t, []byte("k"), rec2.Data)
	assert.Equal(t, uint32(firstLen), rec2.StartOffset)
}

func TestDecode_CorruptCRC(t *testing.T) {
	buf := Append(nil, Put, []byte("hello"), 0)
	// Flip a bit inside the data field.
	dataStart := 9
	buf[dataStart] ^= 0x01

	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecode_TruncatedBuffer(t *testing.T) {
	buf := Append(nil, Put, []byte("hello world"), 0)
	_, _, err := Decode(buf[:len(buf)-3])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestBackLink(t *testing.T) {
	var buf []byte
	buf = Append(buf, Put, []byte("a"), 0)
	off1 := uint32(len(buf))
	buf = Append(buf, Put, []byte("bb"), off1)

	link, err := BackLink(buf, len(buf))
	require.NoError(t, err)
	assert.Equal(t, off1, link)
}

func TestLen(t *testing.T) {
	assert.Equal(t, FixedBlockLen, Len(0))
	assert.Equal(t, FixedBlockLen+10, Len(10))
}
