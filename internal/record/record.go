// Package record implements the WAL's length-prefixed, CRC-validated record
// framing. It is pure encode/decode logic with no I/O: the wal package owns
// the file handle and calls into record to build and parse the bytes it
// writes and reads.
package record

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// ActionType identifies what a record's payload means to a replaying engine.
type ActionType byte

const (
	Delete        ActionType = 0
	Put           ActionType = 1
	SetAppend     ActionType = 2
	SetRemove     ActionType = 3
	SortedPut     ActionType = 4
	SortedRemove  ActionType = 5
)

func (a ActionType) String() string {
	switch a {
	case Delete:
		return "DELETE"
	case Put:
		return "PUT"
	case SetAppend:
		return "SET_APPEND"
	case SetRemove:
		return "SET_REMOVE"
	case SortedPut:
		return "SORTED_PUT"
	case SortedRemove:
		return "SORTED_REMOVE"
	default:
		return "UNKNOWN"
	}
}

// FixedBlockLen is the size in bytes of every record's header+trailer:
// 1 (act_type) + 4 (crc) + 4 (data_size) + 4 (start_offset).
const FixedBlockLen = 1 + 4 + 4 + 4

// ErrCorrupt indicates a record's CRC did not match its payload, or a length
// field would read past the end of the buffer.
var ErrCorrupt = errors.New("record: corrupted WAL record")

// Record is one decoded WAL entry.
type Record struct {
	Action      ActionType
	Data        []byte
	StartOffset uint32
}

// Append encodes rec (action type act_type, given data, at startOffset) onto
// dst and returns the extended slice. The CRC is computed over data only.
func Append(dst []byte, act ActionType, data []byte, startOffset uint32) []byte {
	crc := crc32.ChecksumIEEE(data)

	dst = append(dst, byte(act))
	dst = appendUint32(dst, crc)
	dst = appendUint32(dst, uint32(len(data)))
	dst = append(dst, data...)
	dst = appendUint32(dst, startOffset)
	return dst
}

// Len returns the total on-disk length of a record carrying dataSize bytes of
// payload.
func Len(dataSize int) int { return FixedBlockLen + dataSize }

// Decode parses a single record starting at the front of src. It returns the
// record and the number of bytes consumed. An error wrapping ErrCorrupt is
// returned if src is too short for the declared data_size, or if the CRC does
// not match.
func Decode(src []byte) (Record, int, error) {
	if len(src) < FixedBlockLen {
		return Record{}, 0, ErrCorrupt
	}

	act := ActionType(src[0])
	wantCRC := binary.LittleEndian.Uint32(src[1:5])
	dataSize := binary.LittleEndian.Uint32(src[5:9])

	total := FixedBlockLen + int(dataSize)
	if total < FixedBlockLen || len(src) < total {
		return Record{}, 0, ErrCorrupt
	}

	data := src[9 : 9+dataSize]
	gotCRC := crc32.ChecksumIEEE(data)
	if gotCRC != wantCRC {
		return Record{}, 0, ErrCorrupt
	}

	startOffset := binary.LittleEndian.Uint32(src[9+dataSize : 9+dataSize+4])

	return Record{Action: act, Data: data, StartOffset: startOffset}, total, nil
}

// BackLink reads the 4-byte start_offset trailer ending at byte offset end
// (exclusive) in src, i.e. the start offset of the record whose trailer
// occupies src[end-4:end]. Used by backward scanning to hop to the previous
// record without re-parsing it.
func BackLink(src []byte, end int) (uint32, error) {
	if end < 4 || end > len(src) {
		return 0, ErrCorrupt
	}
	return binary.LittleEndian.Uint32(src[end-4 : end]), nil
}

func appendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}
