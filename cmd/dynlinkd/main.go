// dynlinkd hosts a dispatch runtime and serves its introspection service.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chazu/dynlink/compiler/traits"
	"github.com/chazu/dynlink/config"
	"github.com/chazu/dynlink/indy"
	"github.com/chazu/dynlink/inspect"
	"github.com/chazu/dynlink/mop"
	"github.com/chazu/dynlink/profile"
)

func main() {
	dir := flag.String("dir", ".", "Directory to search upwards for dynlink.toml")
	listen := flag.String("listen", "", "Inspect service address (overrides [inspect] listen)")
	verbosity := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity)")
	traitDir := flag.String("traits", "", "Directory of encoded trait metadata (*.trait) to publish")
	snapshot := flag.Duration("snapshot", 30*time.Second, "Interval between call-site profile snapshots")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dynlinkd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Starts a dispatch runtime configured from dynlink.toml and serves\n")
		fmt.Fprintf(os.Stderr, "call-site, class and trait introspection over Connect and gRPC.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(run(*dir, *listen, *traitDir, *verbosity, *snapshot))
}

func run(dir, listen, traitDir string, verbosity int, snapshot time.Duration) int {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if verbosity >= 0 {
		cfg.Log.Verbosity = verbosity
	}
	if listen != "" {
		cfg.Inspect.Listen = listen
	}
	cfg.ApplyLogging()

	reg := mop.New()
	mop.InstallDefaults(reg)
	rt := indy.NewRuntime(reg, cfg.SiteOptions())
	table := traits.NewTable()
	if traitDir != "" {
		if err := loadTraits(table, traitDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	var rec *profile.Recorder
	if path := cfg.ProfilePath(); path != "" {
		store, err := profile.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer store.Close()
		rec = profile.NewRecorder(store, rt, snapshot)
	}

	srv := inspect.NewServer(rt, table)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(cfg.Inspect.Listen) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	code := 0
	select {
	case err := <-errc:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	case <-sig:
	}
	if rec != nil {
		rec.Close()
	}
	return code
}

// loadTraits registers every *.trait file in dir.
func loadTraits(table *traits.Table, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.trait"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		t, err := traits.DecodeMetadata(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		table.Register(t)
	}
	return nil
}
