// Command blockproxyd is the server binary for the block-device proxy
// protocol: resolve a backing image, optionally select a partition and
// decode a dynamic VHD on top of it, then serve INFO/READ/WRITE
// requests over whichever transport the command line names (§4.7, §6).
//
// Usage:
//
//	blockproxyd [-r] [--novhd] [-p N] [--offset SIZE] [--size SIZE] \
//	            [--dll LIB;ENTRY] [--verbose] BACKING COMM
//
// BACKING is a file or device path, or, when --dll selects a provider,
// the name handed to the provider's open entry. COMM is "-",
// "tcp:PORT", "shm:NAME", or "drv:PATH".
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"blockproxy"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("blockproxyd", flag.ContinueOnError)
	readOnly := fs.Bool("r", false, "open the backing image read-only")
	noVHD := fs.Bool("novhd", false, "never decode a dynamic VHD header")
	partition := fs.Int("p", 0, "1-based MBR partition index to expose (0 = whole image)")
	offset := fs.String("offset", "", "explicit image_offset (size literal, e.g. 512K)")
	size := fs.String("size", "", "explicit physical_size (size literal)")
	dll := fs.String("dll", "", "plugin spec \"path/to/lib.so;EntrySymbol\"")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "usage: blockproxyd [flags] BACKING COMM") }

	if err := fs.Parse(args); err != nil {
		return blockproxy.ExitUsage
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return blockproxy.ExitUsage
	}
	backingPath, comm := rest[0], rest[1]

	log := blockproxy.NewLogger(*verbose)

	var imageOffset uint64
	if *offset != "" {
		v, err := blockproxy.ParseSizeSuffix(*offset)
		if err != nil {
			log.Error("invalid --offset", "err", err)
			return blockproxy.ExitUsage
		}
		imageOffset = v
	}
	var explicitSize uint64
	if *size != "" {
		v, err := blockproxy.ParseSizeSuffix(*size)
		if err != nil {
			log.Error("invalid --size", "err", err)
			return blockproxy.ExitUsage
		}
		explicitSize = v
	}

	cfg := blockproxy.Config{
		BackingPath: backingPath,
		ReadOnly:    *readOnly,
		Partition:   *partition,
		ImageOffset: imageOffset,
		NoVHD:       *noVHD,
		Comm:        comm,
	}
	if *dll != "" {
		lib, entry, ok := strings.Cut(*dll, ";")
		if !ok {
			log.Error("--dll must be \"path;entry\"")
			return blockproxy.ExitUsage
		}
		cfg.PluginLib, cfg.PluginEntry = lib, entry
	}

	defer blockproxy.RecoverFatal(log, cfg)

	return serve(cfg, explicitSize, log)
}

func serve(cfg blockproxy.Config, explicitSize uint64, log *slog.Logger) int {
	unlock, err := blockproxy.AcquireSingleInstance(cfg)
	if err != nil {
		log.Error("another instance is already serving this backing path", "err", err)
		return blockproxy.ExitTransportSetup
	}
	defer unlock()

	bh, err := openBacking(cfg)
	if err != nil {
		log.Error("open backing failed", "err", err)
		return blockproxy.ExitOpenOrReadFailed
	}
	defer bh.Close()

	physicalSize, err := blockproxy.ResolvePhysicalSize(explicitSize, bh, cfg.BackingPath)
	if err != nil {
		log.Error("cannot resolve physical_size", "err", err)
		return blockproxy.ExitOpenOrReadFailed
	}

	geom, translator, err := blockproxy.BuildGeometry(cfg, bh, physicalSize)
	if err != nil {
		log.Error("cannot build image geometry", "err", err)
		return blockproxy.ExitOpenOrReadFailed
	}
	blockproxy.DumpGeometry(log, geom)
	if translator != nil {
		blockproxy.DumpVHDFooter(log, translator.Footer)
	}

	t, err := blockproxy.OpenTransport(cfg.Comm)
	if err != nil {
		log.Error("cannot open transport", "err", err)
		return blockproxy.ExitTransportSetup
	}
	defer t.Close()

	io := &blockproxy.LogicalIO{Backing: bh, ImageOffset: geom.ImageOffset, VHD: translator}
	sess := blockproxy.NewSession(t, io, geom, log)

	log.Info("serving", "backing", cfg.BackingPath, "comm", cfg.Comm, "file_size", geom.FileSize)
	if err := sess.Serve(); err != nil {
		log.Error("session ended with error", "err", err)
		return blockproxy.ExitOpenOrReadFailed
	}
	return blockproxy.ExitClean
}

func openBacking(cfg blockproxy.Config) (blockproxy.BackingHandle, error) {
	if cfg.PluginLib != "" {
		return blockproxy.LoadPlugin(cfg.PluginLib, cfg.PluginEntry, cfg.BackingPath, cfg.ReadOnly)
	}
	return blockproxy.OpenFileBacking(cfg.BackingPath, cfg.ReadOnly)
}
