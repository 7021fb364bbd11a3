/*
NAME
  transcode.go

DESCRIPTION
  transcode.go validates a pair of DSP files and converts them to an HPS file.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package transcode converts left and right channel DSP ADPCM files into a
// looping stereo HPS file.
package transcode

import (
	"bufio"
	"os"

	"github.com/pkg/errors"

	"github.com/ausocean/hps/codec/dsp"
	"github.com/ausocean/hps/config"
	"github.com/ausocean/hps/container/hps"
)

// Input validation errors. These are all detected before the output file
// is created.
var (
	ErrSizeMismatch = errors.New("input files are not the same length")
	ErrTooSmall     = errors.New("input files are not valid DSP files")
)

// Pair names the files of one conversion.
type Pair struct {
	Left   string
	Right  string
	Output string
}

// PairFromConfig returns the files named by c.
func PairFromConfig(c *config.Config) Pair {
	return Pair{Left: c.LeftPath, Right: c.RightPath, Output: c.OutputPath}
}

// Run converts the DSP files of p into an HPS file using the sample rate,
// loop point and block size in c, returning the blocks written. A LOOP token
// in the left file's name overrides c.LoopPoint.
//
// If encoding fails part way, the partial output file is left in place.
func Run(c *config.Config, p Pair) ([]hps.Block, error) {
	size, err := checkSizes(p)
	if err != nil {
		return nil, err
	}

	left, leftHeader, err := open(p.Left)
	if err != nil {
		return nil, err
	}
	defer left.Close()
	right, rightHeader, err := open(p.Right)
	if err != nil {
		return nil, err
	}
	defer right.Close()

	err = dsp.CheckPair(leftHeader, rightHeader)
	if err != nil {
		return nil, errors.Wrapf(err, "%s and %s", p.Left, p.Right)
	}

	loop := c.LoopPoint
	if v, ok := config.LoopFromName(p.Left); ok {
		c.Logger.Debug("loop point from file name", "file", p.Left, "seconds", v)
		loop = v
	}

	out, err := os.Create(p.Output)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s for writing", p.Output)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	e, err := hps.NewEncoder(w, c.Logger,
		hps.SampleRate(uint32(c.SampleRate)),
		hps.LoopPoint(loop),
		hps.BlockSize(int(c.BlockSize)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "could not create HPS encoder")
	}

	c.Logger.Info("transcoding", "left", p.Left, "right", p.Right, "output", p.Output)
	err = e.Encode(
		hps.Source{Header: leftHeader, Frames: bufio.NewReader(left)},
		hps.Source{Header: rightHeader, Frames: bufio.NewReader(right)},
		size-dsp.HeaderSize,
	)
	ferr := w.Flush()
	if err != nil {
		return e.Blocks(), errors.Wrapf(err, "could not transcode to %s", p.Output)
	}
	if ferr != nil {
		return e.Blocks(), errors.Wrapf(ferr, "could not write %s", p.Output)
	}
	err = out.Close()
	if err != nil {
		return e.Blocks(), errors.Wrapf(err, "could not close %s", p.Output)
	}
	c.Logger.Info("transcode complete", "output", p.Output, "blocks", len(e.Blocks()))
	return e.Blocks(), nil
}

// checkSizes returns the common size of the input files.
func checkSizes(p Pair) (int, error) {
	l, err := os.Stat(p.Left)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat file %s", p.Left)
	}
	r, err := os.Stat(p.Right)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat file %s", p.Right)
	}
	if l.Size() != r.Size() {
		return 0, errors.Wrapf(ErrSizeMismatch, "%d, %d", l.Size(), r.Size())
	}
	if l.Size() <= dsp.HeaderSize {
		return 0, errors.Wrapf(ErrTooSmall, "%d bytes", l.Size())
	}
	return int(l.Size()), nil
}

// open opens the DSP file at path and reads its header.
func open(path string) (*os.File, *dsp.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open file %s for reading", path)
	}
	h, err := dsp.ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "could not read header of %s", path)
	}
	return f, h, nil
}
