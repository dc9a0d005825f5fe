// Command qbusd is the broker daemon: one node of a statically
// configured cluster, serving the wire protocol described in spec.md.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/qbusio/qbus/internal/config"
	"github.com/qbusio/qbus/internal/nlog"
	"github.com/qbusio/qbus/internal/registry"
	"github.com/qbusio/qbus/internal/server"
)

func main() {
	var (
		addr        = flag.String("addr", "127.0.0.1:7001", "TCP address to serve the RPC protocol on")
		dataDir     = flag.String("data-dir", "./data", "accepted for forward compatibility; not used by the core")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this HTTP address")
	)
	nlog.InitFlags(flag.CommandLine)
	flag.Parse()
	_ = dataDir // not used by the core; see spec.md §9 on vestigial persistence

	env, err := config.FromEnv()
	if err != nil {
		nlog.Errorf("startup: %v", err)
		os.Exit(1)
	}
	view := env.View()
	nlog.SetLogDirRole("", env.SelfID)
	nlog.SetTitle("qbusd " + env.SelfID)

	reg := registry.New()
	srv := server.New(*addr, *metricsAddr, view, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		nlog.Errorf("server: %v", err)
		os.Exit(1)
	}
}
