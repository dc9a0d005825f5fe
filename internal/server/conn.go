package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/qbusio/qbus/internal/cluster"
	"github.com/qbusio/qbus/internal/handlers"
	"github.com/qbusio/qbus/internal/metrics"
	"github.com/qbusio/qbus/internal/nlog"
	"github.com/qbusio/qbus/internal/registry"
	"github.com/qbusio/qbus/internal/wire"
)

const (
	initialBufSize = 64 * 1024
	readReserve    = 1024
)

// conn owns one accepted socket and runs its strictly-sequential
// read/decode/dispatch/write loop: request n+1 is never decoded before
// reply n has been handed to the kernel, so stream_id only needs to be
// echoed, never used to reorder concurrent in-flight replies.
type conn struct {
	nc   net.Conn
	view *cluster.View
	reg  *registry.Registry

	buf []byte // growable read buffer; data held is buf[:fill]
	fill int
}

func newConn(nc net.Conn, view *cluster.View, reg *registry.Registry) *conn {
	return &conn{nc: nc, view: view, reg: reg, buf: make([]byte, initialBufSize)}
}

func (c *conn) serve(ctx context.Context) {
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()
	defer c.nc.Close()

	for {
		req, ok, err := c.nextRequest()
		if err != nil {
			nlog.Warningf("%s: closing connection: %v", c.nc.RemoteAddr(), err)
			return
		}
		if !ok {
			return // clean EOF
		}

		reply := handlers.Handle(ctx, req.header.Op, req.body, c.view, c.reg)
		if err := c.writeReply(req.header, reply); err != nil {
			nlog.Warningf("%s: write failed: %v", c.nc.RemoteAddr(), err)
			return
		}
	}
}

type request struct {
	header wire.Header
	body   []byte
}

// nextRequest reads until one complete frame is buffered, decodes its
// header, and slices off exactly body_len bytes as the body. ok == false
// with err == nil means EOF was observed; this counts as a clean close
// even if a partial frame was buffered, which is then dropped. A non-nil
// err is always fatal: the caller must close the connection without a
// reply (bad magic/version/opcode, or a read error other than EOF).
func (c *conn) nextRequest() (request, bool, error) {
	for {
		h, ok, err := wire.DecodeHeader(c.buf[:c.fill])
		if err != nil {
			return request{}, false, err
		}
		if ok {
			need := wire.HeaderLen + int(h.BodyLen)
			if c.fill >= need {
				body := make([]byte, h.BodyLen)
				copy(body, c.buf[wire.HeaderLen:need])
				c.consume(need)
				return request{header: h, body: body}, true, nil
			}
			c.ensureCapacity(need)
		} else {
			c.ensureCapacity(wire.HeaderLen)
		}

		n, err := c.nc.Read(c.buf[c.fill:])
		c.fill += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return request{}, false, nil // clean close, whether or not a partial frame was buffered
			}
			return request{}, false, err
		}
	}
}

// consume drops the first n bytes of the buffered data, shifting any
// remainder (the start of the next frame) to the front.
func (c *conn) consume(n int) {
	remaining := c.fill - n
	copy(c.buf, c.buf[n:c.fill])
	c.fill = remaining
}

// ensureCapacity keeps at least readReserve bytes of free space before
// every read the way spec.md §4.5 calls for. buf is reallocated to
// need+readReserve only when that headroom is short, so a frame larger
// than buf is taken in over several reads before buf grows to hold it.
func (c *conn) ensureCapacity(need int) {
	if len(c.buf) >= need+readReserve || len(c.buf)-c.fill >= readReserve {
		return
	}
	grown := make([]byte, need+readReserve)
	copy(grown, c.buf[:c.fill])
	c.buf = grown
}

// writeReply frames the reply (echoing stream_id and op from the
// request) and writes header+body in one Write call, so the reply is
// atomic on the wire — no concurrent writer on this connection could
// ever interleave with it, since the loop is strictly sequential.
func (c *conn) writeReply(reqHeader wire.Header, body []byte) error {
	frame := wire.EncodeHeader(make([]byte, 0, wire.HeaderLen+len(body)), reqHeader.Op, reqHeader.StreamID, uint32(len(body)))
	frame = append(frame, body...)
	_, err := c.nc.Write(frame)
	return err
}
