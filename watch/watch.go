/*
NAME
  watch.go

DESCRIPTION
  watch.go provides a batch mode that converts left/right DSP file pairs as
  they appear in a directory.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package watch converts pairs of DSP files dropped into a directory.
//
// A pair is two files named <base>_L.dsp and <base>_R.dsp (the suffix is
// matched without regard to case). Once both exist with the same size the
// pair is converted to <base>.hps in the output directory. A pair is
// converted again if either file is modified afterwards.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/hps/codec/dsp"
	"github.com/ausocean/hps/config"
	"github.com/ausocean/hps/container/hps"
	"github.com/ausocean/hps/transcode"
	"github.com/ausocean/utils/logging"
)

// File name suffixes, compared in lower case.
const (
	leftSuffix  = "_l.dsp"
	rightSuffix = "_r.dsp"
	outExt      = ".hps"
)

// Watcher converts DSP pairs found in a directory.
type Watcher struct {
	cfg *config.Config
	log logging.Logger

	// done holds the modification time of the newest file of each pair at
	// the time it was last converted, keyed by base name.
	done map[string]time.Time

	convert func(*config.Config, transcode.Pair) ([]hps.Block, error)
}

// New returns a Watcher for c.WatchDir writing to c.OutDir. c must have
// been validated.
func New(c *config.Config) *Watcher {
	return &Watcher{
		cfg:     c,
		log:     c.Logger,
		done:    make(map[string]time.Time),
		convert: transcode.Run,
	}
}

// Run converts any pairs already present, then watches for new or modified
// pairs until ctx is cancelled. Failed conversions are logged and do not stop
// the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create file watcher")
	}
	defer fw.Close()

	err = fw.Add(w.cfg.WatchDir)
	if err != nil {
		return errors.Wrapf(err, "could not watch %s", w.cfg.WatchDir)
	}
	w.log.Info("watching for DSP pairs", "dir", w.cfg.WatchDir, "out", w.cfg.OutDir)

	err = w.Scan()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if _, _, ok := split(filepath.Base(ev.Name)); !ok {
				continue
			}
			w.log.Debug("DSP file changed", "file", ev.Name, "op", ev.Op.String())
			err = w.Scan()
			if err != nil {
				w.log.Error("scan failed", "error", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warning("file watcher error", "error", err)
		}
	}
}

// Scan converts every complete pair in the watched directory that is new
// or has changed since it was last converted.
func (w *Watcher) Scan() error {
	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", w.cfg.WatchDir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	pairs := Pairs(names)
	bases := make([]string, 0, len(pairs))
	for base := range pairs {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	for _, base := range bases {
		w.process(base, pairs[base])
	}
	return nil
}

// process converts one pair if it is ready and has not been converted in
// its current state.
func (w *Watcher) process(base string, pair [2]string) {
	p := transcode.Pair{
		Left:   filepath.Join(w.cfg.WatchDir, pair[0]),
		Right:  filepath.Join(w.cfg.WatchDir, pair[1]),
		Output: filepath.Join(w.cfg.OutDir, base+outExt),
	}

	l, err := os.Stat(p.Left)
	if err != nil {
		return
	}
	r, err := os.Stat(p.Right)
	if err != nil {
		return
	}
	if l.Size() != r.Size() || l.Size() <= dsp.HeaderSize {
		w.log.Debug("pair not ready", "base", base, "left", l.Size(), "right", r.Size())
		return
	}

	mod := l.ModTime()
	if r.ModTime().After(mod) {
		mod = r.ModTime()
	}
	if last, ok := w.done[base]; ok && !mod.After(last) {
		return
	}
	w.done[base] = mod

	blocks, err := w.convert(w.cfg, p)
	if err != nil {
		w.log.Error("could not convert pair", "base", base, "error", err)
		return
	}
	w.log.Info("converted pair", "base", base, "output", p.Output, "blocks", len(blocks))
}

// Pairs groups file names into left/right pairs keyed by base name. Names
// without a partner are left out.
func Pairs(names []string) map[string][2]string {
	left := make(map[string]string)
	right := make(map[string]string)
	for _, n := range names {
		base, isLeft, ok := split(n)
		if !ok {
			continue
		}
		if isLeft {
			left[base] = n
		} else {
			right[base] = n
		}
	}

	pairs := make(map[string][2]string)
	for base, l := range left {
		if r, ok := right[base]; ok {
			pairs[base] = [2]string{l, r}
		}
	}
	return pairs
}

// split returns the base of a channel file name and whether it is the left
// channel. ok is false for names that are not channel files.
func split(name string) (base string, isLeft, ok bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, leftSuffix):
		return name[:len(name)-len(leftSuffix)], true, true
	case strings.HasSuffix(lower, rightSuffix):
		return name[:len(name)-len(rightSuffix)], false, true
	}
	return "", false, false
}
