package blockproxy

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"

	"blockproxy/vhd"
)

// NewLogger builds the slog.Logger C8 uses throughout bootstrap and
// session handling. Text handler at Info by default, switched to
// Debug by --verbose (§4.8); everything goes to stderr so stdout stays
// free for the stdio transport.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// errnoSuffix formats an error for a log line the way the wire
// protocol itself reports failures: a short message plus the numeric
// errno in parentheses, so a log grep for "(9)" finds the same class
// of failure the client saw as EBADF (§4.6, §4.8).
func errnoSuffix(err error) string {
	if err == nil {
		return ""
	}
	if n := errnoOf(err); n != 0 {
		return fmt.Sprintf("%s (%d)", err, n)
	}
	return err.Error()
}

// DumpGeometry renders a verbose, field-by-field view of g for
// --verbose diagnostics, using go-spew the way the rest of the pack
// does for structural dumps rather than hand-rolled %+v formatting.
func DumpGeometry(log *slog.Logger, g ImageGeometry) {
	log.Debug("resolved image geometry",
		"physical_size", humanize.IBytes(g.PhysicalSize),
		"current_size", humanize.IBytes(g.CurrentSize),
		"file_size", humanize.IBytes(g.FileSize),
		"image_offset", g.ImageOffset,
		"req_alignment", g.ReqAlignment,
		"read_only", g.Flags.ReadOnly(),
	)
	log.Debug(spew.Sdump(g))
}

// DumpVHDFooter logs whether f's stored checksum matches a freshly
// computed one. §4.3 Activation doesn't require checksum validation to
// engage VHD mode, but a mismatch is useful corruption-detection
// output under --verbose.
func DumpVHDFooter(log *slog.Logger, f vhd.Footer) {
	computed := f.ComputeChecksum()
	log.Debug("vhd footer checksum",
		"stored", f.Checksum,
		"computed", computed,
		"match", computed == f.Checksum,
	)
}
