// Package nlog is the broker's logger: buffered, severity-gated, optional
// file output with size-based rotation, adapted from aistore's cmn/nlog.
// The original's pooled fixed-size buffers are replaced with a plain
// mutex + bufio.Writer pair — this broker logs at RPC-call granularity,
// not per-object-chunk, so the extra allocation headroom the teacher
// buys with buffer pooling isn't needed here.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

var (
	toStderr     bool
	alsoToStderr bool

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	written int64
	logDir  string
	role    string
	title   string

	// MaxSize is the byte threshold at which the active log file is
	// closed and a fresh one opened.
	MaxSize int64 = 4 * 1024 * 1024
)

// InitFlags registers the broker's logging flags into flset, the same
// pairing aistore's nlog.InitFlags does against the process FlagSet.
func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", false, "log to standard error instead of files")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error as well as files")
}

// SetLogDirRole configures where log files land and the role tag
// (e.g. node id) embedded in the log file name. It does not affect a
// file that is already open; the values apply to the next file opened
// (the first write with a non-empty dir, or the first write after a
// rotation). With an empty dir no log file is written.
func SetLogDirRole(dir, r string) {
	mu.Lock()
	defer mu.Unlock()
	logDir, role = dir, r
}

func SetTitle(s string) {
	mu.Lock()
	title = s
	mu.Unlock()
}

func Infof(format string, args ...any)    { logf(sevInfo, format, args...) }
func Infoln(args ...any)                  { logln(sevInfo, args...) }
func Warningf(format string, args ...any) { logf(sevWarn, format, args...) }
func Warningln(args ...any)               { logln(sevWarn, args...) }
func Errorf(format string, args ...any)   { logf(sevErr, format, args...) }
func Errorln(args ...any)                 { logln(sevErr, args...) }

func logf(sev severity, format string, args ...any) {
	write(sev, fmt.Sprintf(format, args...))
}

func logln(sev severity, args ...any) {
	write(sev, fmt.Sprintln(args...))
}

func write(sev severity, msg string) {
	line := fmt.Sprintf("%c %s %s", sevChar[sev], time.Now().Format("15:04:05.000000"), msg)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}

	if toStderr || sev >= sevErr {
		os.Stderr.WriteString(line)
		if toStderr {
			return
		}
	} else if alsoToStderr {
		os.Stderr.WriteString(line)
	}

	mu.Lock()
	defer mu.Unlock()
	if err := ensureFile(); err != nil {
		return
	}
	n, _ := writer.WriteString(line)
	written += int64(n)
	writer.Flush()
	if written >= MaxSize {
		rotate()
	}
}

// Flush forces any buffered log output to disk.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		writer.Flush()
	}
}

func ensureFile() error {
	if file != nil || logDir == "" {
		return nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	return openNewFile()
}

func openNewFile() error {
	name := fmt.Sprintf("%s.%s.%d.log", role, time.Now().Format("20060102-150405"), os.Getpid())
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	file = f
	writer = bufio.NewWriter(f)
	written = 0
	if title != "" {
		writer.WriteString(title + "\n")
	}
	return nil
}

// caller holds mu
func rotate() {
	writer.Flush()
	file.Close()
	file = nil
	writer = nil
}
