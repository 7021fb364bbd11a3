/*
NAME
  dsp.go

DESCRIPTION
  dsp.go provides reading of the header of mono DSP ADPCM files.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dsp provides reading of DSP ADPCM file headers.
//
// A DSP file is a 0x60 byte big-endian header followed by ADPCM frames:
//
//	0x00 channel metadata (sample count at 0x00, format, loop flags)
//	0x1C 16 x int16 decode coefficients
//	0x3C 8 bytes initial decoder state (gain, predictor/scale, hist1, hist2)
//	0x60 ADPCM frames
package dsp

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/hps/codec/adpcm"
)

// Header layout.
const (
	HeaderSize      = 0x60
	MetaSize        = 0x1C
	coefOffset      = 0x1C
	stateOffset     = 0x3C
	DecodeStateSize = 8
	histOffset      = 0x40
)

// Errors returned by ReadHeader and CheckPair.
var (
	ErrShortHeader    = errors.New("file too short to hold a DSP header")
	ErrHeaderMismatch = errors.New("DSP headers do not match")
)

// Header holds the fields of a DSP header needed for transcoding.
type Header struct {
	// Meta is the channel metadata, copied verbatim. A stereo pair of
	// files must have identical metadata.
	Meta [MetaSize]byte

	Coefs [adpcm.NumCoefs]int16

	// DecodeState is the initial decoder state record, which overlaps
	// Hist1 and Hist2.
	DecodeState [DecodeStateSize]byte

	Hist1 int16
	Hist2 int16
}

// ReadHeader reads a DSP header from r, leaving r positioned at the first
// ADPCM frame.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	_, err := io.ReadFull(r, buf[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, ErrShortHeader
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read DSP header")
	}

	h := &Header{}
	copy(h.Meta[:], buf[:MetaSize])
	err = binary.Read(bytes.NewReader(buf[coefOffset:stateOffset]), binary.BigEndian, &h.Coefs)
	if err != nil {
		return nil, errors.Wrap(err, "could not read decode coefficients")
	}
	copy(h.DecodeState[:], buf[stateOffset:stateOffset+DecodeStateSize])
	h.Hist1 = int16(binary.BigEndian.Uint16(buf[histOffset:]))
	h.Hist2 = int16(binary.BigEndian.Uint16(buf[histOffset+2:]))
	return h, nil
}

// SampleCount returns the number of samples in the file, as recorded in the
// first word of the metadata.
func (h *Header) SampleCount() uint32 {
	return binary.BigEndian.Uint32(h.Meta[:4])
}

// Coefficients returns the decoder state at the start of the file.
func (h *Header) Coefficients() adpcm.Coefficients {
	return adpcm.Coefficients{Coefs: h.Coefs, Hist1: h.Hist1, Hist2: h.Hist2}
}

// CheckPair returns ErrHeaderMismatch if left and right cannot be the two
// channels of one recording.
func CheckPair(left, right *Header) error {
	if left.Meta != right.Meta {
		return ErrHeaderMismatch
	}
	return nil
}
