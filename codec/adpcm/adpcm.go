/*
NAME
  adpcm.go

DESCRIPTION
  adpcm.go simulates decoding of DSP ADPCM frames to track decoder history.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package adpcm provides a decoder state simulation for 4-bit DSP ADPCM.
//
// DSP ADPCM is carried in 8 byte frames. The first byte of a frame holds the
// predictor (coefficient pair) index in its high nibble and the scale
// exponent in its low nibble, the remaining 7 bytes hold 14 signed 4-bit
// samples. Decoding a sample needs the two previously reconstructed samples,
// so a decoder resuming part way through a stream must be told that history.
// Coefficients.Decode reproduces the history a hardware decoder would hold
// after consuming a run of frames, without keeping the reconstructed audio.
package adpcm

import (
	"errors"
	"fmt"
	"math"
)

const (
	FrameSize       = 8  // Bytes in a frame, including the header byte.
	SamplesPerFrame = 14 // Samples decoded from one frame.
	NumCoefs        = 16 // Eight coefficient pairs.
	maxCoefIndex    = NumCoefs/2 - 1
)

// ErrInvalidCoefIndex is returned when a frame header selects a coefficient
// pair outside of the table. This only happens for corrupt input.
var ErrInvalidCoefIndex = errors.New("invalid coefficient index in frame header")

// Coefficients holds the prediction coefficients of a channel and the
// decoder history, i.e. the last two reconstructed samples.
type Coefficients struct {
	Coefs [NumCoefs]int16
	Hist1 int16
	Hist2 int16
}

// Decode runs the decoder over frames, updating Hist1 and Hist2 to the values
// held after the last nibble of frames. frames must begin on a frame
// boundary; a trailing partial frame is decoded as far as it goes.
//
// If a frame header holds an invalid coefficient index, decoding stops and
// an error wrapping ErrInvalidCoefIndex is returned. History reflects the
// samples decoded up to that frame.
func (c *Coefficients) Decode(frames []byte) error {
	var (
		scale  int32
		c1, c2 int32
	)
	for i, b := range frames {
		if i%FrameSize == 0 {
			scale = 1 << (b & 0x0f)
			idx := int(b >> 4)
			if idx > maxCoefIndex {
				return fmt.Errorf("%w: %d at offset %d", ErrInvalidCoefIndex, idx, i)
			}
			c1 = int32(c.Coefs[idx*2])
			c2 = int32(c.Coefs[idx*2+1])
			continue
		}
		c.step(nibble(b>>4), scale, c1, c2)
		c.step(nibble(b&0x0f), scale, c1, c2)
	}
	return nil
}

// step reconstructs one sample from nibble n and shifts it into history.
func (c *Coefficients) step(n, scale, c1, c2 int32) {
	s := (n * scale) << 11
	s += c1*int32(c.Hist1) + c2*int32(c.Hist2)
	s += 1024
	s >>= 11
	c.Hist2 = c.Hist1
	c.Hist1 = clamp16(s)
}

// nibble sign extends the 4 bit value in the low bits of b.
func nibble(b byte) int32 {
	n := int32(b & 0x0f)
	if n > 7 {
		n -= 16
	}
	return n
}

// clamp16 saturates v to the int16 range.
func clamp16(v int32) int16 {
	switch {
	case v < math.MinInt16:
		return math.MinInt16
	case v > math.MaxInt16:
		return math.MaxInt16
	default:
		return int16(v)
	}
}

// BytesToSamples returns the number of samples held in n bytes of whole frames.
func BytesToSamples(n int) int { return n * SamplesPerFrame / FrameSize }

// SamplesToBytes returns the number of frame bytes holding n samples. n is
// expected to be a whole number of frames.
func SamplesToBytes(n int) int { return n * FrameSize / SamplesPerFrame }
