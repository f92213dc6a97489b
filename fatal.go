package blockproxy

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/foobaz/go-zopfli/zopfli"
)

// Exit codes (§4.7, §6 CLI surface).
const (
	ExitClean            = 0
	ExitOpenOrReadFailed = 1
	ExitTransportSetup   = 2
	ExitFatal            = 3
	ExitCannotDismount   = 9
	ExitUsage            = -1
)

// RecoverFatal is deferred once in cmd/blockproxyd's main: a panic
// anywhere below it is caught, written to a compressed support bundle
// in the working directory, logged, and turned into os.Exit(ExitFatal)
// rather than an unhandled crash (§4.9 C9 Fatal Handler).
func RecoverFatal(log *slog.Logger, cfg Config) {
	r := recover()
	if r == nil {
		return
	}
	path, err := writeSupportBundle(cfg, r, debug.Stack())
	if err != nil {
		log.Error("fatal handler could not write support bundle", "err", err)
	} else {
		log.Error("fatal error, support bundle written", "path", path)
	}
	log.Error("panic", "value", fmt.Sprint(r))
	os.Exit(ExitFatal)
}

// writeSupportBundle renders a text dump (panic value, stack trace,
// resolved config) and compresses it with zopfli, the same codec the
// rest of this repo otherwise only reads (provider/compressedimage):
// here it is the writer, chosen for its much higher compression ratio
// at the one-shot, off-the-hot-path moment a crash bundle is produced.
func writeSupportBundle(cfg Config, panicValue interface{}, stack []byte) (string, error) {
	var dump []byte
	dump = append(dump, []byte(fmt.Sprintf("blockproxyd crash report\ntime: %s\n\n", time.Now().UTC().Format(time.RFC3339)))...)
	dump = append(dump, []byte(fmt.Sprintf("panic: %v\n\n", panicValue))...)
	dump = append(dump, stack...)
	dump = append(dump, []byte("\n\nconfig:\n")...)
	dump = append(dump, []byte(spew.Sdump(cfg))...)

	compressed, err := zopfli.GzipCompress(zopfli.DefaultOptions(), dump)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("blockproxyd-crash-%d.gz", time.Now().UnixNano())
	if err := os.WriteFile(path, compressed, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
