/*
NAME
  dsp_test.go

DESCRIPTION
  dsp_test.go tests reading of DSP headers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/hps/codec/adpcm"
)

// header returns a raw DSP header with recognisable field values.
func header(samples uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b, samples)
	binary.BigEndian.PutUint32(b[4:], 0x1234)
	for i := 0; i < adpcm.NumCoefs; i++ {
		binary.BigEndian.PutUint16(b[coefOffset+2*i:], uint16(int16(i*100-800)))
	}
	b[0x3E] = 0x00
	b[0x3F] = 0x47
	hist1, hist2 := int16(-2), int16(300)
	binary.BigEndian.PutUint16(b[histOffset:], uint16(hist1))
	binary.BigEndian.PutUint16(b[histOffset+2:], uint16(hist2))
	return b
}

func TestReadHeader(t *testing.T) {
	raw := append(header(1400), 0xaa, 0xbb)
	r := bytes.NewReader(raw)

	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	var want Header
	copy(want.Meta[:], raw[:MetaSize])
	for i := range want.Coefs {
		want.Coefs[i] = int16(i*100 - 800)
	}
	copy(want.DecodeState[:], raw[stateOffset:])
	want.Hist1 = -2
	want.Hist2 = 300

	if !cmp.Equal(*h, want) {
		t.Errorf("unexpected header\n%s", cmp.Diff(want, *h))
	}

	if h.SampleCount() != 1400 {
		t.Errorf("unexpected sample count: %d", h.SampleCount())
	}

	c := h.Coefficients()
	if c.Hist1 != -2 || c.Hist2 != 300 || c.Coefs != want.Coefs {
		t.Errorf("unexpected coefficients: %+v", c)
	}

	// The reader must be left at the first frame.
	next, err := r.ReadByte()
	if err != nil || next != 0xaa {
		t.Errorf("reader not positioned at frames, got: %#x, %v", next, err)
	}
}

func TestReadHeaderShort(t *testing.T) {
	for _, n := range []int{0, 1, HeaderSize - 1} {
		_, err := ReadHeader(bytes.NewReader(header(0)[:n]))
		if !errors.Is(err, ErrShortHeader) {
			t.Errorf("length %d: expected ErrShortHeader, got: %v", n, err)
		}
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReadHeaderError(t *testing.T) {
	_, err := ReadHeader(errReader{})
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("expected wrapped read error, got: %v", err)
	}
}

func TestCheckPair(t *testing.T) {
	left, err := ReadHeader(bytes.NewReader(header(1400)))
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	// Only the metadata has to match; coefficients and history are per channel.
	right := *left
	right.Coefs[3] = 77
	right.Hist1 = 9
	if err := CheckPair(left, &right); err != nil {
		t.Errorf("did not expect error: %v", err)
	}

	right.Meta[MetaSize-1] ^= 0xff
	if err := CheckPair(left, &right); !errors.Is(err, ErrHeaderMismatch) {
		t.Errorf("expected ErrHeaderMismatch, got: %v", err)
	}
}
