/*
NAME
  watch_test.go

DESCRIPTION
  watch_test.go tests pairing and conversion of DSP files in a watched
  directory.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package watch

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/hps/codec/adpcm"
	"github.com/ausocean/hps/codec/dsp"
	"github.com/ausocean/hps/config"
	"github.com/ausocean/hps/container/hps"
	"github.com/ausocean/hps/transcode"
	"github.com/ausocean/utils/logging"
)

func TestPairs(t *testing.T) {
	names := []string{
		"theme_L.dsp",
		"theme_R.dsp",
		"boss_l.DSP",
		"boss_r.dsp",
		"lonely_L.dsp",
		"notes.txt",
		"stage_LOOP2.5_L.dsp",
		"stage_LOOP2.5_R.dsp",
		"_R.dsp",
	}
	want := map[string][2]string{
		"theme":         {"theme_L.dsp", "theme_R.dsp"},
		"boss":          {"boss_l.DSP", "boss_r.dsp"},
		"stage_LOOP2.5": {"stage_LOOP2.5_L.dsp", "stage_LOOP2.5_R.dsp"},
	}

	got := Pairs(names)
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected pairs\n%s", cmp.Diff(want, got))
	}
}

// writeDSP writes a valid DSP file with size frame bytes to dir/name.
func writeDSP(t *testing.T, dir, name string, size int) {
	t.Helper()
	b := make([]byte, dsp.HeaderSize+size)
	binary.BigEndian.PutUint32(b, uint32(adpcm.BytesToSamples(size)))
	for i := dsp.HeaderSize; i < len(b); i += adpcm.FrameSize {
		b[i] = 0x02
	}
	err := os.WriteFile(filepath.Join(dir, name), b, 0644)
	if err != nil {
		t.Fatalf("could not write test file: %v", err)
	}
}

func newWatcher(t *testing.T) (*Watcher, *[]transcode.Pair) {
	t.Helper()
	c := &config.Config{
		Logger:   (*logging.TestLogger)(t),
		WatchDir: t.TempDir(),
		OutDir:   t.TempDir(),
	}
	err := c.Validate()
	if err != nil {
		t.Fatalf("could not validate config: %v", err)
	}

	var calls []transcode.Pair
	w := New(c)
	w.convert = func(c *config.Config, p transcode.Pair) ([]hps.Block, error) {
		calls = append(calls, p)
		return transcode.Run(c, p)
	}
	return w, &calls
}

func TestScan(t *testing.T) {
	w, calls := newWatcher(t)
	dir := w.cfg.WatchDir

	writeDSP(t, dir, "theme_L.dsp", 0x100)
	writeDSP(t, dir, "theme_R.dsp", 0x80)
	writeDSP(t, dir, "intro_L.dsp", 0x40)

	err := w.Scan()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("converted %d pairs before any were ready", len(*calls))
	}

	writeDSP(t, dir, "theme_R.dsp", 0x100)
	err = w.Scan()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	want := []transcode.Pair{{
		Left:   filepath.Join(dir, "theme_L.dsp"),
		Right:  filepath.Join(dir, "theme_R.dsp"),
		Output: filepath.Join(w.cfg.OutDir, "theme.hps"),
	}}
	if !cmp.Equal(*calls, want) {
		t.Errorf("unexpected conversions\n%s", cmp.Diff(want, *calls))
	}

	out, err := os.ReadFile(want[0].Output)
	if err != nil {
		t.Fatalf("could not read output: %v", err)
	}
	if len(out) != 0x80+0x20+0x200 {
		t.Errorf("got output length %#x", len(out))
	}

	// Nothing has changed so the pair is not converted again.
	err = w.Scan()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if len(*calls) != 1 {
		t.Errorf("got %d conversions, want 1", len(*calls))
	}

	// A newer right file triggers another conversion.
	later := time.Now().Add(time.Minute)
	err = os.Chtimes(filepath.Join(dir, "theme_R.dsp"), later, later)
	if err != nil {
		t.Fatalf("could not touch file: %v", err)
	}
	err = w.Scan()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if len(*calls) != 2 {
		t.Errorf("got %d conversions, want 2", len(*calls))
	}
}

func TestScanMissingDir(t *testing.T) {
	w, _ := newWatcher(t)
	w.cfg.WatchDir = filepath.Join(w.cfg.WatchDir, "missing")
	err := w.Scan()
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRun(t *testing.T) {
	w, _ := newWatcher(t)
	dir := w.cfg.WatchDir
	writeDSP(t, dir, "early_L.dsp", 0x40)
	writeDSP(t, dir, "early_R.dsp", 0x40)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, filepath.Join(w.cfg.OutDir, "early.hps"))

	writeDSP(t, dir, "late_L.dsp", 0x40)
	writeDSP(t, dir, "late_R.dsp", 0x40)
	waitFor(t, filepath.Join(w.cfg.OutDir, "late.hps"))

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("did not expect error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

// waitFor waits for path to hold a complete single block container.
func waitFor(t *testing.T, path string) {
	t.Helper()
	const want = 0x80 + 0x20 + 0x80
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		fi, err := os.Stat(path)
		if err == nil && fi.Size() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s was not written", path)
}
