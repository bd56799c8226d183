package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/source/filesrc"
)

type catOptions struct {
	offset    uint64
	length    uint64
	blocksize uint
	output    string
}

func (o *catOptions) register(fs *flag.FlagSet) {
	fs.Uint64VarP(&o.offset, "offset", "s", 0, "Start reading at this byte offset (seekable sources only)")
	fs.Uint64VarP(&o.length, "length", "n", 0, "Stop after this many bytes (0: until the end)")
	fs.UintVarP(&o.blocksize, "blocksize", "b", 0, "Bytes per read (default: the configured blocksize)")
	fs.StringVarP(&o.output, "output", "o", "-", "Write to this file instead of stdout")
}

func newCatCmd() *cobra.Command {
	opts := &catOptions{}

	cmd := &cobra.Command{
		Use:   "cat <uri|path>",
		Short: "Read a URI through the matching source and write its bytes out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			out := cmd.OutOrStdout()
			if opts.output != "-" {
				f, err := os.Create(opts.output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runCat(ctx, opts, args[0], out)
		},
	}
	opts.register(cmd.Flags())

	return cmd
}

func runCat(ctx context.Context, opts *catOptions, target string, out io.Writer) error {
	uri := target
	if _, ok := element.URIProtocol(target); !ok {
		// A plain path.
		var err error
		if uri, err = filesrc.URIFromPath(target); err != nil {
			return err
		}
	}

	src, err := element.MakeFromURI(element.URISrc, uri, "")
	if err != nil {
		return errors.Wrapf(err, "open %s", uri)
	}
	defer src.Dispose()

	if opts.blocksize > 0 {
		src.SetBlocksize(opts.blocksize)
	}

	if err := src.SetState(element.StatePlaying); err != nil {
		return errors.Wrapf(err, "start %s", uri)
	}

	if opts.offset > 0 || opts.length > 0 {
		stop := element.Unbounded
		if opts.length > 0 {
			stop = opts.offset + opts.length
		}
		if err := src.Seek(opts.offset, stop); err != nil {
			return errors.Wrapf(err, "seek %s", uri)
		}
	}

	// Loop only sees ctx between buffers. Stopping the source releases a
	// blocked read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := src.SetState(element.StateReady); err != nil {
				log.Debug("Stopping %s: %v", uri, err)
			}
		case <-done:
		}
	}()

	ret := src.Loop(ctx, func(buf *element.Buffer) error {
		_, err := out.Write(buf.Bytes())
		return err
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	if ret == element.FlowEOS {
		return nil
	}
	return errors.Errorf("reading %s: %v", uri, ret)
}
