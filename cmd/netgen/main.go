// Command netgen writes channel-set lists for the phi command: every
// combination of -size channels out of -channels, split into -shards files
// so independent jobs can each take one.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"phicli/internal/channelset"
	"phicli/internal/files"
)

type options struct {
	channels int
	size     int
	start    int
	shards   int
	out      string
	prefix   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("netgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.IntVar(&o.channels, "channels", 0, "number of channels in the recording")
	fs.IntVar(&o.size, "size", 2, "channels per set")
	fs.IntVar(&o.start, "start", 0, "id of the first set")
	fs.IntVar(&o.shards, "shards", 1, "number of files to split the sets into")
	fs.StringVar(&o.out, "out", "", "output directory (default: print to stdout)")
	fs.StringVar(&o.prefix, "prefix", "sets", "file name prefix for shard files")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.channels < 1 {
		return nil, fmt.Errorf("-channels must be positive")
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	sets, err := channelset.Generate(o.channels, o.size, o.start)
	if err != nil {
		return err
	}

	if o.out == "" {
		_, err := io.WriteString(stdout, channelset.Format(sets))
		return err
	}

	manager := files.NewManager(nil)
	for k, shard := range channelset.Shard(sets, o.shards) {
		path := filepath.Join(o.out, fmt.Sprintf("%s_%d.txt", o.prefix, k))
		text := channelset.Format(shard)
		if err := manager.WriteAtomic(path, func(w io.Writer) error {
			_, err := io.WriteString(w, text)
			return err
		}); err != nil {
			return err
		}
		slog.Info("Wrote channel sets",
			slog.String("path", path),
			slog.Int("sets", len(shard)),
			slog.Int("first_id", shard[0].ID))
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("netgen failed", "error", err)
		os.Exit(1)
	}
}
