// Command qbus is the broker's client CLI, built the way aistore's own
// cmd/cli is: github.com/urfave/cli for subcommands/flags and
// github.com/fatih/color to highlight the reply status in human output.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/qbusio/qbus/internal/qclient"
	"github.com/qbusio/qbus/internal/wire"
)

const defaultServer = "127.0.0.1:7001"

func main() {
	app := cli.NewApp()
	app.Name = "qbus"
	app.Usage = "command-line client for the qbus message broker"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "server", Value: defaultServer, Usage: "bootstrap server host:port"},
	}
	app.Commands = []cli.Command{
		createTopicCmd,
		createQueueCmd,
		bindQueueCmd,
		produceCmd,
		consumeCmd,
		metadataCmd,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

var createTopicCmd = cli.Command{
	Name:      "create-topic",
	Usage:     "create a topic",
	ArgsUsage: "TOPIC",
	Action: func(c *cli.Context) error {
		topic := c.Args().First()
		if topic == "" {
			return cli.NewExitError("missing TOPIC argument", 1)
		}
		w := wire.NewWriter(nil)
		if err := w.PutStr(topic); err != nil {
			return err
		}
		return call(c, wire.CreateTopic, w.Bytes(), nil)
	},
}

var createQueueCmd = cli.Command{
	Name:      "create-queue",
	Usage:     "create a queue",
	ArgsUsage: "QUEUE",
	Flags: []cli.Flag{
		cli.UintFlag{Name: "capacity", Value: 1024, Usage: "queue capacity"},
	},
	Action: func(c *cli.Context) error {
		queue := c.Args().First()
		if queue == "" {
			return cli.NewExitError("missing QUEUE argument", 1)
		}
		w := wire.NewWriter(nil)
		if err := w.PutStr(queue); err != nil {
			return err
		}
		w.PutU32(uint32(c.Uint("capacity")))
		return call(c, wire.CreateQueue, w.Bytes(), nil)
	},
}

var bindQueueCmd = cli.Command{
	Name:      "bind-queue",
	Usage:     "bind a queue to a topic",
	ArgsUsage: "TOPIC QUEUE",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.NewExitError("usage: bind-queue TOPIC QUEUE", 1)
		}
		w := wire.NewWriter(nil)
		if err := w.PutStr(c.Args().Get(0)); err != nil {
			return err
		}
		if err := w.PutStr(c.Args().Get(1)); err != nil {
			return err
		}
		return call(c, wire.BindQueue, w.Bytes(), nil)
	},
}

var produceCmd = cli.Command{
	Name:      "produce",
	Usage:     "produce a payload to a topic",
	ArgsUsage: "TOPIC PAYLOAD",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.NewExitError("usage: produce TOPIC PAYLOAD", 1)
		}
		w := wire.NewWriter(nil)
		if err := w.PutStr(c.Args().Get(0)); err != nil {
			return err
		}
		w.PutBytes([]byte(c.Args().Get(1)))
		return call(c, wire.Produce, w.Bytes(), nil)
	},
}

var consumeCmd = cli.Command{
	Name:      "consume",
	Usage:     "consume one payload from a queue",
	ArgsUsage: "QUEUE",
	Flags: []cli.Flag{
		cli.UintFlag{Name: "timeout-ms", Value: 0, Usage: "block up to this many milliseconds for a message"},
	},
	Action: func(c *cli.Context) error {
		queue := c.Args().First()
		if queue == "" {
			return cli.NewExitError("missing QUEUE argument", 1)
		}
		w := wire.NewWriter(nil)
		if err := w.PutStr(queue); err != nil {
			return err
		}
		w.PutU32(uint32(c.Uint("timeout-ms")))
		return call(c, wire.Consume, w.Bytes(), func(r *wire.Reader) {
			payload, ok := r.GetBytes()
			if ok {
				fmt.Println(string(payload))
			}
		})
	},
}

var metadataCmd = cli.Command{
	Name:      "metadata",
	Usage:     "look up a topic's leader address",
	ArgsUsage: "TOPIC",
	Action: func(c *cli.Context) error {
		topic := c.Args().First()
		if topic == "" {
			return cli.NewExitError("missing TOPIC argument", 1)
		}
		w := wire.NewWriter(nil)
		if err := w.PutStr(topic); err != nil {
			return err
		}
		return call(c, wire.Metadata, w.Bytes(), func(r *wire.Reader) {
			r.GetU32() // count
			r.GetU32() // reserved
			if addr, ok := r.GetStr(); ok {
				fmt.Println(addr)
			}
		})
	},
}

// call performs the RPC, transparently following redirects, prints a
// colorized status line, and invokes onOk(reader over the payload that
// followed the status) when the final status is wire.Ok.
func call(c *cli.Context, op wire.Opcode, body []byte, onOk func(*wire.Reader)) error {
	client := qclient.New()
	res, err := client.Call(context.Background(), c.GlobalString("server"), op, body)
	if err != nil {
		return err
	}
	printStatus(res.Status)
	if res.Status == wire.Ok && onOk != nil {
		onOk(wire.NewReader(res.Payload))
	}
	if res.Status != wire.Ok && res.Status != wire.Empty {
		return cli.NewExitError("", 1)
	}
	return nil
}

func printStatus(s wire.Status) {
	switch s {
	case wire.Ok:
		fmt.Fprintln(os.Stderr, color.GreenString(s.String()))
	case wire.Redirect:
		fmt.Fprintln(os.Stderr, color.YellowString(s.String()))
	case wire.Empty:
		fmt.Fprintln(os.Stderr, color.CyanString(s.String()))
	default:
		fmt.Fprintln(os.Stderr, color.RedString(s.String()))
	}
}
