/*
NAME
  transcode_test.go

DESCRIPTION
  transcode_test.go tests conversion of DSP file pairs on disk.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package transcode

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/hps/codec/adpcm"
	"github.com/ausocean/hps/codec/dsp"
	"github.com/ausocean/hps/config"
	"github.com/ausocean/hps/container/hps"
	"github.com/ausocean/utils/logging"
)

// writeDSP writes a DSP file with size frame bytes to dir/name and returns
// its path.
func writeDSP(t *testing.T, dir, name string, size int, seed byte) string {
	t.Helper()
	b := make([]byte, dsp.HeaderSize+size)
	binary.BigEndian.PutUint32(b, uint32(adpcm.BytesToSamples(size)))
	binary.BigEndian.PutUint16(b[0x1c:], 2048)
	for i := dsp.HeaderSize; i < len(b); i++ {
		if (i-dsp.HeaderSize)%adpcm.FrameSize == 0 {
			b[i] = 0x01
			continue
		}
		b[i] = byte(i) ^ seed
	}
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, b, 0644)
	if err != nil {
		t.Fatalf("could not write test file: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{Logger: (*logging.TestLogger)(t), WatchDir: t.TempDir()}
	err := c.Validate()
	if err != nil {
		t.Fatalf("could not validate config: %v", err)
	}
	return c
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	p := Pair{
		Left:   writeDSP(t, dir, "theme_L.dsp", 0x100, 0x5a),
		Right:  writeDSP(t, dir, "theme_R.dsp", 0x100, 0xa5),
		Output: filepath.Join(dir, "theme.hps"),
	}

	blocks, err := Run(testConfig(t), p)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("got %d blocks, want 1", len(blocks))
	}

	out, err := os.ReadFile(p.Output)
	if err != nil {
		t.Fatalf("could not read output: %v", err)
	}
	const wantLen = 0x80 + 0x20 + 0x200
	if len(out) != wantLen {
		t.Fatalf("got length %#x, want %#x", len(out), wantLen)
	}
	if rate := binary.BigEndian.Uint32(out[8:]); rate != 32000 {
		t.Errorf("got sample rate %d, want 32000", rate)
	}
	if got := binary.BigEndian.Uint32(out[0x80:]); got != 0x200 {
		t.Errorf("got data length %#x, want 0x200", got)
	}
	if got := binary.BigEndian.Uint32(out[0x88:]); got != 0x80 {
		t.Errorf("got loop pointer %#x, want 0x80", got)
	}
}

func TestRunLoopFromName(t *testing.T) {
	dir := t.TempDir()
	p := Pair{
		Left:   writeDSP(t, dir, "theme_LOOP0.0035_L.dsp", 0x100, 1),
		Right:  writeDSP(t, dir, "theme_LOOP0.0035_R.dsp", 0x100, 2),
		Output: filepath.Join(dir, "theme.hps"),
	}

	c := testConfig(t)
	c.SampleRate = 16000
	c.LoopPoint = 3 // Overridden by the file name.

	blocks, err := Run(c, p)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	want, err := hps.LoopAddress(0.0035, 16000, hps.DefaultGeometry)
	if err != nil || want != 0x80+0x20+0x40 {
		t.Fatalf("unexpected loop address %#x", want)
	}
	if len(blocks) != 2 || blocks[1].Pointer != want || blocks[1].Offset != int(want) {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
}

func TestRunValidation(t *testing.T) {
	dir := t.TempDir()

	mismatched := writeDSP(t, dir, "mismatch_R.dsp", 0x100, 2)
	b, err := os.ReadFile(mismatched)
	if err != nil {
		t.Fatalf("could not read test file: %v", err)
	}
	b[4] = 0x10
	err = os.WriteFile(mismatched, b, 0644)
	if err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	hundred := filepath.Join(dir, "hundred.dsp")
	twoHundred := filepath.Join(dir, "two_hundred.dsp")
	for path, n := range map[string]int{hundred: 100, twoHundred: 200} {
		err := os.WriteFile(path, make([]byte, n), 0644)
		if err != nil {
			t.Fatalf("could not write test file: %v", err)
		}
	}

	tests := []struct {
		name  string
		left  string
		right string
		want  error
	}{
		{name: "size mismatch", left: hundred, right: twoHundred, want: ErrSizeMismatch},
		{name: "too small", left: writeDSP(t, dir, "empty_L.dsp", 0, 0), right: writeDSP(t, dir, "empty_R.dsp", 0, 0), want: ErrTooSmall},
		{name: "missing", left: filepath.Join(dir, "missing.dsp"), right: hundred, want: fs.ErrNotExist},
		{name: "header mismatch", left: writeDSP(t, dir, "mismatch_L.dsp", 0x100, 1), right: mismatched, want: dsp.ErrHeaderMismatch},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := filepath.Join(dir, "out.hps")
			_, err := Run(testConfig(t), Pair{Left: test.left, Right: test.right, Output: out})
			if !errors.Is(err, test.want) {
				t.Errorf("got error: %v, want: %v", err, test.want)
			}
			if _, err := os.Stat(out); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("output created before validation failed: %v", err)
			}
		})
	}
}

func TestRunCorrupt(t *testing.T) {
	dir := t.TempDir()
	left := writeDSP(t, dir, "corrupt_L.dsp", 0x100, 1)
	right := writeDSP(t, dir, "corrupt_R.dsp", 0x100, 2)

	b, err := os.ReadFile(right)
	if err != nil {
		t.Fatalf("could not read test file: %v", err)
	}
	b[dsp.HeaderSize+0x10] = 0x91
	err = os.WriteFile(right, b, 0644)
	if err != nil {
		t.Fatalf("could not write test file: %v", err)
	}

	out := filepath.Join(dir, "corrupt.hps")
	_, err = Run(testConfig(t), Pair{Left: left, Right: right, Output: out})
	if !errors.Is(err, adpcm.ErrInvalidCoefIndex) {
		t.Fatalf("expected ErrInvalidCoefIndex, got: %v", err)
	}

	// Output stops after the left payload of the failed block.
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatalf("partial output missing: %v", err)
	}
	if want := int64(0x80 + 0x20 + 0x100); fi.Size() != want {
		t.Errorf("got partial size %#x, want %#x", fi.Size(), want)
	}
}
