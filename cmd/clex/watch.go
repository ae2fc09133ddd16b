package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/debug"
)

// watchDebounce batches rapid change events (editors often write a file
// several times in a row) before re-lexing.
const watchDebounce = 100 * time.Millisecond

// watchAndDump lexes the files once, then re-lexes any that change until
// interrupted.
func watchAndDump(cfg *config.Config, includeDirs []string, paths []string, printFlags bool) error {
	if err := dumpAll(cfg, includeDirs, paths, printFlags); err != nil {
		fmt.Fprintf(os.Stderr, "clex: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debug.Printf("watch event: %s", ev)
			pending[ev.Name] = true
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "clex: watch error: %v\n", err)

		case <-timer.C:
			for path := range pending {
				fmt.Printf("== %s (changed)\n", path)
				out, errs, _, err := lexFile(cfg, includeDirs, path, printFlags)
				if err != nil {
					fmt.Fprintf(os.Stderr, "clex: %v\n", err)
					continue
				}
				os.Stdout.WriteString(out)
				os.Stderr.WriteString(errs)
			}
			pending = make(map[string]bool)

		case <-sigs:
			return nil
		}
	}
}
