// Package wire frames service requests and responses so any byte transport can
// carry them.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version byte = 1

	// HeaderLen is the fixed prefix before the body.
	HeaderLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("evcache: corrupt frame")
	magic4     = [...]byte{'E', 'V', 'C', 'A'}
)

// Frame: magic(4) | ver(1) | op(1) | id(u64 be) | blen(u32 be) | body(blen)
//
// Op is opaque to this package. ID is echoed from request to response so
// transports may pipeline.
type Frame struct {
	Op   byte
	ID   uint64
	Body []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func Encode(f Frame) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderLen + len(f.Body))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(f.Op)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], f.ID)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(f.Body)))
	buf.Write(u4[:])

	buf.Write(f.Body)
	return buf.Bytes()
}

// Decode parses exactly one frame. Body aliases b.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderLen || !hasMagic(b) || b[4] != version {
		return Frame{}, ErrCorrupt
	}
	f := Frame{Op: b[5]}
	off := 6

	// id
	f.ID = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	// blen
	blen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if blen < 0 || blen != len(b)-off { // no short bodies, no trailing bytes
		return Frame{}, ErrCorrupt
	}

	f.Body = b[off : off+blen]
	return f, nil
}

// BodyLen reads the announced body length from a header, so stream transports
// know how much more to read. It does not validate beyond the magic and version.
func BodyLen(hdr []byte) (int, error) {
	if len(hdr) < HeaderLen || !hasMagic(hdr) || hdr[4] != version {
		return 0, ErrCorrupt
	}
	return int(binary.BigEndian.Uint32(hdr[14:18])), nil
}
