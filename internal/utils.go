package internal

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Options are the flags shared by the roi tools.
type Options struct {
	Version bool
	Indent  bool
	Verbose bool
	Codec   string
	Events  string
	OutPath string
	BoxPath string
	Region  string
	CRF     int
	QOffset float64
}

type OptionParseFunc func() Options

// Usage installs a flag.Usage printing the tool description and its
// positional arguments.
func Usage(usg, args string) {
	flag.Usage = func() {
		parts := strings.Split(os.Args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, usg, name, name)
		fmt.Fprintf(os.Stderr, "\nRun as: %s [options] %s with options:\n\n", name, args)
		flag.PrintDefaults()
	}
}

// ParseParams parses the command line and returns the options and at least
// minArgs positional arguments. It exits after printing the version or the
// usage.
func ParseParams(tool string, function OptionParseFunc, minArgs int) (o Options, args []string) {
	o = function()
	if o.Version {
		fmt.Printf("%s version %s\n", tool, GetVersion())
		os.Exit(0)
	}
	if len(flag.Args()) < minArgs {
		flag.Usage()
		os.Exit(1)
	}
	return o, flag.Args()
}

// SignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-ch:
			logrus.WithField("signal", sig.String()).Warn("Interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}

// SetupLogging sends logs to stderr as text at the given level, or at debug
// level when verbose is set.
func SetupLogging(level logrus.Level, verbose bool) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
