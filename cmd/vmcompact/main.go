package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/docopt/docopt-go"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/pretty"

	"github.com/hrko/vmcompact/internal/config"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/ui"
)

const (
	version = "0.1.0"
	// logName matches what cmd/log-viewer follows.
	logName = "vmcompact.*.log"
)

const usage = `Voicemeeter Compact.

Usage:
    vmcompact [--kind=<kind>] [--config-dir=<dir>] [--log-file=<path> | --log-temp] [--verbose]
    vmcompact dump-config [--config-dir=<dir>]
    vmcompact -h | --help
    vmcompact --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --kind=<kind>        basic, banana or potato [default: banana].
    --config-dir=<dir>   Directory holding app.toml, vban.toml and profiles [default: configs].
    --log-file=<path>    Also write the log to this file.
    --log-temp           Also write the log to a new vmcompact.*.log file in the temp directory.
    --verbose            Log at debug level.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	dir, _ := opts.String("--config-dir")
	if dump, _ := opts.Bool("dump-config"); dump {
		if err := dumpConfig(os.Stdout, dir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	closeLog, err := setupLogging(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(opts, dir); err != nil {
		logrus.Error(err)
		closeLog()
		os.Exit(1)
	}
}

func run(opts docopt.Opts, dir string) error {
	name, _ := opts.String("--kind")
	k, err := kind.Get(name)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logrus.Infof("Starting Voicemeeter %v Compact", k.Name)
	u, err := ui.New(cfg, k)
	if err != nil {
		return err
	}
	return u.Run(ctx)
}

func setupLogging(opts docopt.Opts) (func(), error) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose, _ := opts.Bool("--verbose"); verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	f, err := openLogFile(opts)
	if err != nil || f == nil {
		return func() {}, err
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	logrus.Infof("Log written to: %s", f.Name())
	return func() {
		logrus.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func openLogFile(opts docopt.Opts) (*os.File, error) {
	if temp, _ := opts.Bool("--log-temp"); temp {
		f, err := os.CreateTemp("", logName)
		if err != nil {
			return nil, fmt.Errorf("error creating log file: %w", err)
		}
		return f, nil
	}
	path, _ := opts.String("--log-file")
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	return f, nil
}

func dumpConfig(w io.Writer, dir string) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}
