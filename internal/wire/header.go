// Package wire implements the broker's 16-byte frame header and the
// typed, length-prefixed field codec used by every request/reply body.
// The cursor style (an offset walking a byte slice, non-destructive on
// underflow) follows aistore's transport/pdu.go, which reads a protocol
// header out of a streamed body the same way.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	Magic   uint32 = 0x51425553 // 'QBUS'
	Version uint8  = 1

	HeaderLen = 16
)

// Header is the fixed 16-byte frame prefix, big-endian on the wire:
//
//	offset size field
//	  0      4  magic
//	  4      1  version
//	  5      1  opcode
//	  6      1  flags    (reserved, must be 0 on send)
//	  7      1  reserved (0)
//	  8      4  stream_id
//	 12      4  body_len
type Header struct {
	Op       Opcode
	Flags    uint8
	StreamID uint32
	BodyLen  uint32
}

// EncodeHeader appends the 16-byte header for (op, streamID, bodyLen) to dst.
func EncodeHeader(dst []byte, op Opcode, streamID, bodyLen uint32) []byte {
	var b [HeaderLen]byte
	binary.BigEndian.PutUint32(b[0:4], Magic)
	b[4] = Version
	b[5] = byte(op)
	b[6] = 0 // flags
	b[7] = 0 // reserved
	binary.BigEndian.PutUint32(b[8:12], streamID)
	binary.BigEndian.PutUint32(b[12:16], bodyLen)
	return append(dst, b[:]...)
}

// FatalHeaderError marks a protocol-integrity violation (bad magic,
// version, or opcode): the connection that produced it must be closed
// without a reply, per spec.
type FatalHeaderError struct {
	msg string
}

func (e *FatalHeaderError) Error() string { return e.msg }

// DecodeHeader attempts to parse a Header from the front of buf.
//
//   - ok == false, err == nil: fewer than HeaderLen bytes buffered so far;
//     the caller must wait for more data without consuming anything.
//   - err != nil: magic or version mismatch, or an invalid opcode — fatal,
//     the connection must close without a reply.
//   - ok == true, err == nil: a complete header was parsed.
func DecodeHeader(buf []byte) (h Header, ok bool, err error) {
	if len(buf) < HeaderLen {
		return Header{}, false, nil
	}
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != Magic {
		return Header{}, false, &FatalHeaderError{fmt.Sprintf("invalid magic: %#x", magic)}
	}
	ver := buf[4]
	if ver != Version {
		return Header{}, false, &FatalHeaderError{fmt.Sprintf("invalid version: %d", ver)}
	}
	op := Opcode(buf[5])
	if !op.Valid() {
		return Header{}, false, &FatalHeaderError{fmt.Sprintf("invalid opcode: %#x", buf[5])}
	}
	h = Header{
		Op:       op,
		Flags:    buf[6],
		StreamID: binary.BigEndian.Uint32(buf[8:12]),
		BodyLen:  binary.BigEndian.Uint32(buf[12:16]),
	}
	return h, true, nil
}
