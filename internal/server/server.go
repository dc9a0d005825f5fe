// Package server runs the broker's TCP listener and the per-connection
// request loop. The accept loop, the metrics HTTP endpoint, and
// shutdown-on-signal are supervised together with golang.org/x/sync/
// errgroup, the same coordinated-goroutine-lifecycle idiom aistore's node
// runners use across its own long-running background loops.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/qbusio/qbus/internal/cluster"
	"github.com/qbusio/qbus/internal/nlog"
	"github.com/qbusio/qbus/internal/registry"
)

type Server struct {
	addr        string
	metricsAddr string
	view        *cluster.View
	reg         *registry.Registry
}

func New(addr, metricsAddr string, view *cluster.View, reg *registry.Registry) *Server {
	return &Server{addr: addr, metricsAddr: metricsAddr, view: view, reg: reg}
}

// Run blocks, serving the broker's TCP RPC listener and, when a metrics
// address was given, its Prometheus endpoint, until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	nlog.Infof("listening for RPC on %s (self=%s)", s.addr, s.view.Self().ID)

	var metricsSrv *http.Server
	if s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: s.metricsAddr, Handler: mux}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})

	if metricsSrv != nil {
		g.Go(func() error {
			nlog.Infof("serving metrics on %s", s.metricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		ln.Close()
		if metricsSrv != nil {
			metricsSrv.Shutdown(context.Background())
		}
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil // shutting down
			}
			return err
		}
		c := newConn(conn, s.view, s.reg)
		go c.serve(ctx)
	}
}
