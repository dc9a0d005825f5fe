// Package qclient is the broker's Go client library: frame a request,
// dial the target, and transparently follow Redirect replies up to a
// bounded hop count, exactly as spec.md §6 requires of every client.
// A failed dial is retried up to twice on a cenkalti/backoff exponential
// schedule, and between redirect hops the client sleeps for the first
// interval of a fresh exponential backoff — the same supervised-retry
// posture aistore's housekeeping (hk) package takes instead of
// busy-waiting. Write and read errors are not retried.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package qclient

import (
	"context"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/qbusio/qbus/internal/nlog"
	"github.com/qbusio/qbus/internal/wire"
)

const MaxRedirectHops = 5

// Result is a successfully completed call: the final reply's status and
// whatever payload followed it (opcode-dependent; may be empty).
type Result struct {
	Status  wire.Status
	Payload []byte
}

// Client issues one RPC per Call against a bootstrap server address,
// transparently following redirects. It is safe to reuse across calls;
// each Call dials its own connection since a client-side tool rarely
// benefits from keep-alive the way intra-cluster traffic does.
type Client struct {
	DialTimeout time.Duration
}

func New() *Client {
	return &Client{DialTimeout: 5 * time.Second}
}

// Call sends (op, body) to addr and returns the final reply after
// following up to MaxRedirectHops Redirect responses.
func (c *Client) Call(ctx context.Context, addr string, op wire.Opcode, body []byte) (Result, error) {
	for hop := 0; ; hop++ {
		if hop > MaxRedirectHops {
			return Result{}, errors.Errorf("exceeded %d redirect hops", MaxRedirectHops)
		}

		status, payload, err := c.callOnce(ctx, addr, op, body)
		if err != nil {
			return Result{}, err
		}
		if status != wire.Redirect {
			return Result{Status: status, Payload: payload}, nil
		}

		r := wire.NewReader(payload)
		next, ok := r.GetStr()
		if !ok {
			return Result{}, errors.New("redirect reply missing target address")
		}
		nlog.Infof("redirect hop %d: %s -> %s", hop+1, addr, next)
		addr = next
		time.Sleep(backoff.NewExponentialBackOff().NextBackOff())
	}
}

func (c *Client) callOnce(ctx context.Context, addr string, op wire.Opcode, body []byte) (wire.Status, []byte, error) {
	var nc net.Conn
	err := backoff.Retry(func() error {
		d := net.Dialer{Timeout: c.DialTimeout}
		conn, dialErr := d.DialContext(ctx, "tcp", addr)
		if dialErr != nil {
			return dialErr
		}
		nc = conn
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2))
	if err != nil {
		return 0, nil, errors.Wrapf(err, "dial %s", addr)
	}
	defer nc.Close()

	streamID := rand.Uint32()
	frame := wire.EncodeHeader(make([]byte, 0, wire.HeaderLen+len(body)), op, streamID, uint32(len(body)))
	frame = append(frame, body...)
	if _, err := nc.Write(frame); err != nil {
		return 0, nil, errors.Wrapf(err, "write to %s", addr)
	}

	header, err := readHeader(nc)
	if err != nil {
		return 0, nil, err
	}
	replyBody, err := readFull(nc, int(header.BodyLen))
	if err != nil {
		return 0, nil, err
	}

	r := wire.NewReader(replyBody)
	status, ok := r.GetStatus()
	if !ok {
		return 0, nil, errors.New("reply body too short for a status")
	}
	return status, replyBody[2:], nil
}

func readHeader(nc net.Conn) (wire.Header, error) {
	buf := make([]byte, wire.HeaderLen)
	if _, err := io.ReadFull(nc, buf); err != nil {
		return wire.Header{}, errors.Wrap(err, "read header")
	}
	h, ok, err := wire.DecodeHeader(buf)
	if err != nil {
		return wire.Header{}, err
	}
	if !ok {
		return wire.Header{}, errors.New("short header")
	}
	return h, nil
}

func readFull(nc net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(nc, buf); err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return buf, nil
}
