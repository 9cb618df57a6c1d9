// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// uhttpd serves a pipelining demo over uhttp.
//
// Requests for /1, /2, /3 and /4 are answered after 20, 0, 30 and 10
// milliseconds, so that pipelined requests finish out of order while their
// responses are still written in order. Every other path gets "Hello".
//
//	uhttpd -config uhttpd.yaml -admin 127.0.0.1:9090
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/uhttp"
	"go.uber.org/zap"
)

const _stopTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stderr, signals()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signals() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch
}

type options struct {
	configFile string
	host       string
	port       int
	backlog    int
	loops      int
	admin      string
	debug      bool
	noColor    bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	flags := flag.NewFlagSet("uhttpd", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.host, "host", "", "host to listen on, overrides the configuration")
	flags.IntVar(&opts.port, "port", 0, "port to listen on, overrides the configuration")
	flags.IntVar(&opts.backlog, "backlog", 0, "accept backlog, overrides the configuration")
	flags.IntVar(&opts.loops, "loops", 0, "number of event loops, overrides the configuration")
	flags.StringVar(&opts.admin, "admin", "", "address to serve /metrics on")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colors in the access log")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	return opts, nil
}

func loadConfig(opts options) (uhttp.Config, error) {
	var cfg uhttp.Config
	if opts.configFile != "" {
		f, err := os.Open(opts.configFile)
		if err != nil {
			return cfg, err
		}
		defer f.Close()

		cfg, err = uhttp.LoadConfigFromYAML(f)
		if err != nil {
			return cfg, fmt.Errorf("failed to load %v: %v", opts.configFile, err)
		}
	}

	if opts.host != "" {
		cfg.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if opts.backlog != 0 {
		cfg.Backlog = opts.backlog
	}
	if opts.loops != 0 {
		cfg.Loops = opts.loops
	}
	return cfg, cfg.Validate()
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(args []string, stderr io.Writer, stop <-chan os.Signal) (err error) {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.debug)
	if err != nil {
		return err
	}
	defer func() {
		// Syncing stderr fails on some platforms.
		_ = logger.Sync()
	}()

	h := newDemoHandler(newAccessLog(stderr, opts.noColor))
	s, err := uhttp.NewServer(cfg, h, uhttp.Logger(logger))
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	logger.Info("Listening.", zap.Stringer("addr", s.Addr()))

	var admin *http.Server
	if opts.admin != "" {
		admin, err = startAdmin(opts.admin, s, logger)
		if err != nil {
			err = multierr.Append(err, stopServer(s))
			return err
		}
	}

	sig := <-stop
	logger.Info("Shutting down.", zap.Stringer("signal", sig))

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), _stopTimeout)
		err = multierr.Append(err, admin.Shutdown(ctx))
		cancel()
	}
	return multierr.Append(err, stopServer(s))
}

func stopServer(s *uhttp.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), _stopTimeout)
	defer cancel()
	return s.Stop(ctx)
}

// startAdmin serves the metrics of s in the Prometheus text format.
func startAdmin(addr string, s *uhttp.Server, logger *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on admin address %v: %v", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics())
	admin := &http.Server{Handler: mux}
	go func() {
		if err := admin.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin server failed.", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics.", zap.Stringer("addr", ln.Addr()))
	return admin, nil
}
