package searchkey

import (
	"encoding/binary"
	"fmt"
)

// Encode appends the canonical binary form of sk to dst and returns the
// extended slice: an 8-byte little-endian component count, followed by each
// component as a 1-byte kind tag and its natural serialization (fixed-width
// for numeric kinds, an 8-byte little-endian length prefix then bytes for
// String/Bytes).
func Encode(dst []byte, sk SearchKey) []byte {
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(sk)))
	dst = append(dst, countBuf[:]...)

	for _, c := range sk {
		dst = append(dst, byte(c.kind))
		switch c.kind {
		case Bool:
			if c.boolVal {
				dst = append(dst, 1)
			} else {
				dst = append(dst, 0)
			}
		case I8:
			dst = append(dst, byte(c.i8Val))
		case U8:
			dst = append(dst, c.u8Val)
		case I16:
			dst = appendUint16(dst, uint16(c.i16Val))
		case U16:
			dst = appendUint16(dst, c.u16Val)
		case I32:
			dst = appendUint32(dst, uint32(c.i32Val))
		case U32:
			dst = appendUint32(dst, c.u32Val)
		case I64:
			dst = appendUint64(dst, uint64(c.i64Val))
		case U64:
			dst = appendUint64(dst, c.u64Val)
		case I128:
			dst = appendUint64(dst, uint64(c.i128Val.Hi))
			dst = appendUint64(dst, c.i128Val.Lo)
		case U128:
			dst = appendUint64(dst, c.u128Val.Hi)
			dst = appendUint64(dst, c.u128Val.Lo)
		case Uintptr:
			dst = appendUint64(dst, c.uintptrVal)
		case Rune:
			dst = appendUint32(dst, uint32(c.runeVal))
		case String:
			dst = appendUint64(dst, uint64(len(c.strVal)))
			dst = append(dst, c.strVal...)
		case Bytes:
			dst = appendUint64(dst, uint64(len(c.bytesVal)))
			dst = append(dst, c.bytesVal...)
		}
	}
	return dst
}

// Decode parses a SearchKey from the front of src as written by Encode,
// returning the key and the number of bytes consumed.
func Decode(src []byte) (SearchKey, int, error) {
	if len(src) < 8 {
		return nil, 0, fmt.Errorf("searchkey: truncated component count")
	}
	count := binary.LittleEndian.Uint64(src)
	off := 8

	sk := make(SearchKey, 0, count)
	for i := uint64(0); i < count; i++ {
		if off >= len(src) {
			return nil, 0, fmt.Errorf("searchkey: truncated component %d", i)
		}
		kind := Kind(src[off])
		off++

		need := func(n int) error {
			if off+n > len(src) {
				return fmt.Errorf("searchkey: truncated component %d payload", i)
			}
			return nil
		}

		switch kind {
		case Bool:
			if err := need(1); err != nil {
				return nil, 0, err
			}
			sk = append(sk, BoolVal(src[off] != 0))
			off++
		case I8:
			if err := need(1); err != nil {
				return nil, 0, err
			}
			sk = append(sk, I8Val(int8(src[off])))
			off++
		case U8:
			if err := need(1); err != nil {
				return nil, 0, err
			}
			sk = append(sk, U8Val(src[off]))
			off++
		case I16:
			if err := need(2); err != nil {
				return nil, 0, err
			}
			sk = append(sk, I16Val(int16(binary.LittleEndian.Uint16(src[off:]))))
			off += 2
		case U16:
			if err := need(2); err != nil {
				return nil, 0, err
			}
			sk = append(sk, U16Val(binary.LittleEndian.Uint16(src[off:])))
			off += 2
		case I32:
			if err := need(4); err != nil {
				return nil, 0, err
			}
			sk = append(sk, I32Val(int32(binary.LittleEndian.Uint32(src[off:]))))
			off += 4
		case U32:
			if err := need(4); err != nil {
				return nil, 0, err
			}
			sk = append(sk, U32Val(binary.LittleEndian.Uint32(src[off:])))
			off += 4
		case I64:
			if err := need(8); err != nil {
				return nil, 0, err
			}
			sk = append(sk, I64Val(int64(binary.LittleEndian.Uint64(src[off:]))))
			off += 8
		case U64:
			if err := need(8); err != nil {
				return nil, 0, err
			}
			sk = append(sk, U64Val(binary.LittleEndian.Uint64(src[off:])))
			off += 8
		case I128:
			if err := need(16); err != nil {
				return nil, 0, err
			}
			hi := int64(binary.LittleEndian.Uint64(src[off:]))
			lo := binary.LittleEndian.Uint64(src[off+8:])
			sk = append(sk, I128Val(Int128{Hi: hi, Lo: lo}))
			off += 16
		case U128:
			if err := need(16); err != nil {
				return nil, 0, err
			}
			hi := binary.LittleEndian.Uint64(src[off:])
			lo := binary.LittleEndian.Uint64(src[off+8:])
			sk = append(sk, U128Val(Uint128{Hi: hi, Lo: lo}))
			off += 16
		case Uintptr:
			if err := need(8); err != nil {
				return nil, 0, err
			}
			sk = append(sk, UintptrVal(binary.LittleEndian.Uint64(src[off:])))
			off += 8
		case Rune:
			if err := need(4); err != nil {
				return nil, 0, err
			}
			sk = append(sk, RuneVal(rune(binary.LittleEndian.Uint32(src[off:]))))
			off += 4
		case String:
			if err := need(8); err != nil {
				return nil, 0, err
			}
			n := binary.LittleEndian.Uint64(src[off:])
			off += 8
			if err := need(int(n)); err != nil {
				return nil, 0, err
			}
			sk = append(sk, StringVal(string(src[off:off+int(n)])))
			off += int(n)
		case Bytes:
			if err := need(8); err != nil {
				return nil, 0, err
			}
			n := binary.LittleEndian.Uint64(src[off:])
			off += 8
			if err := need(int(n)); err != nil {
				return nil, 0, err
			}
			sk = append(sk, BytesVal(src[off:off+int(n)]))
			off += int(n)
		default:
			return nil, 0, fmt.Errorf("searchkey: unknown component kind %d", kind)
		}
	}
	return sk, off, nil
}

func appendUint16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}
