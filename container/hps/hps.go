/*
NAME
  hps.go

DESCRIPTION
  hps.go defines the layout of the HPS stereo stream container and the
  arithmetic relating loop times, source frame offsets and block addresses.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hps provides an encoder for the HPS block-segmented stereo DSP
// ADPCM stream container.
//
// An HPS file is a 0x10 byte header, two 0x38 byte channel info records and
// a chain of blocks. Each block carries the decoder state of both channels
// at the start of the block, followed by the left then right ADPCM frames of
// the block, each padded to 32 bytes. Every block points at the next one,
// and the last block points back at the loop block:
//
//	0x00 data length (both channels, padded)
//	0x04 last byte index
//	0x08 next block address, or loop address for the last block
//	0x0C left decoder state (8 bytes)
//	0x14 right decoder state (8 bytes)
//	0x1C pad (4 bytes)
//	0x20 left frames, right frames
package hps

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/hps/codec/adpcm"
)

// Container layout.
const (
	fileHeaderSize   = 0x10
	channelInfoSize  = 0x38
	HeaderSize       = fileHeaderSize + numChannels*channelInfoSize // Address of the first block.
	BlockHeaderSize  = 0x20
	decoderStateSize = 8
	numChannels      = 2
	alignment        = 0x20 // Channel payloads are padded to this.

	// channelInfoConst is written to the two unidentified words of the
	// channel info; every known file carries 2 here.
	channelInfoConst = 2
)

// Defaults.
const (
	DefaultBlockSize  = 0x10000
	DefaultSampleRate = 32000
)

// loopAlign is the granularity of loop points in samples. Four frames keep
// the loop on a 32 byte boundary of each channel's payload.
const loopAlign = 4 * adpcm.SamplesPerFrame

var magic = [8]byte{' ', 'H', 'A', 'L', 'P', 'S', 'T', 0}

// Errors returned by Plan and the Encoder options.
var (
	ErrBlockSize         = errors.New("block size must be a positive multiple of 64")
	ErrEmptyStream       = errors.New("no ADPCM frames to encode")
	ErrLoopOutOfRange    = errors.New("loop point is beyond the end of the stream")
	ErrLoopAlignment     = errors.New("loop address is not on a block or frame boundary")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidLoopPoint  = errors.New("invalid loop point")
)

// Geometry describes the size of full blocks.
type Geometry struct {
	// BlockSize is the payload size of a full block, i.e. the frame bytes of
	// both channels. It must be a multiple of 64 so that each channel reads
	// a whole number of 32 byte aligned frames.
	BlockSize int
}

// DefaultGeometry is the block geometry used by the game engine.
var DefaultGeometry = Geometry{BlockSize: DefaultBlockSize}

// Validate returns ErrBlockSize if the geometry is unusable.
func (g Geometry) Validate() error {
	if g.BlockSize <= 0 || g.BlockSize%(2*alignment) != 0 {
		return ErrBlockSize
	}
	return nil
}

// ReadSize returns the frame bytes read from each channel for a full block.
func (g Geometry) ReadSize() int { return g.BlockSize / numChannels }

// BytesPerBlock returns the size of a full block in the container.
func (g Geometry) BytesPerBlock() int { return g.BlockSize + BlockHeaderSize }

// SamplesPerBlock returns the number of samples each channel holds in a full
// block. This is always a multiple of loopAlign.
func (g Geometry) SamplesPerBlock() int { return adpcm.BytesToSamples(g.ReadSize()) }

// LoopAddress returns the container address playback jumps to at the end of
// the stream for a loop point at loopSeconds. The loop sample is rounded to
// the nearest multiple of 56 samples. A loop point on a block boundary gives
// the address of that block; anywhere else the block holding it is cut short
// so that the loop address is the start of the following block. A loop
// point of zero, or a negative one, gives the first block.
//
// ErrLoopOutOfRange is returned if the address does not fit in the 32 bit
// pointer of a block header.
func LoopAddress(loopSeconds float64, sampleRate uint32, g Geometry) (uint32, error) {
	err := g.Validate()
	if err != nil {
		return 0, err
	}

	f := math.Round(loopSeconds * float64(sampleRate))
	if f > math.MaxUint32 {
		return 0, ErrLoopOutOfRange
	}
	var s int64
	if f > 0 {
		s = int64(f)
	}
	s += loopAlign / 2
	s -= s % loopAlign

	spb := int64(g.SamplesPerBlock())
	addr := (s/spb)*int64(g.BytesPerBlock()) + HeaderSize
	if rem := s % spb; rem != 0 {
		addr += BlockHeaderSize + numChannels*int64(adpcm.SamplesToBytes(int(rem)))
	}
	if addr > math.MaxUint32 {
		return 0, ErrLoopOutOfRange
	}
	return uint32(addr), nil
}

// sourceOffset returns the offset into each channel's frames that the
// container address addr resumes decoding at.
func (g Geometry) sourceOffset(addr uint32) (int, error) {
	if int(addr) < HeaderSize {
		return 0, ErrLoopAlignment
	}
	a := int(addr) - HeaderSize
	blk, rem := a/g.BytesPerBlock(), a%g.BytesPerBlock()
	if rem == 0 {
		return blk * g.ReadSize(), nil
	}
	rem -= BlockHeaderSize
	if rem <= 0 || rem%(numChannels*alignment) != 0 {
		return 0, ErrLoopAlignment
	}
	return blk*g.ReadSize() + rem/numChannels, nil
}

// padded returns n rounded up to the payload alignment.
func padded(n int) int {
	return (n + alignment - 1) / alignment * alignment
}
