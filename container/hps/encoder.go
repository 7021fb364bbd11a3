/*
NAME
  encoder.go

DESCRIPTION
  encoder.go provides an encoder that interleaves a left and right DSP ADPCM
  channel into an HPS container.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package hps

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/hps/codec/adpcm"
	"github.com/ausocean/hps/codec/dsp"
	"github.com/ausocean/utils/logging"
)

// Source is one channel of input: its DSP header and a reader positioned at
// its first frame.
type Source struct {
	Header *dsp.Header
	Frames io.Reader
}

// Encoder writes HPS containers.
type Encoder struct {
	dst io.Writer
	n   int // Bytes written to dst.

	sampleRate uint32
	loopPoint  float64
	geo        Geometry

	blocks []Block

	// log is used throughout the encoder for logging.
	log logging.Logger
}

// channel holds the per channel state carried from block to block.
type channel struct {
	name  string
	src   io.Reader
	state adpcm.Coefficients
	buf   []byte
}

// NewEncoder returns a new Encoder writing to dst, configured by the given
// options (see options.go).
func NewEncoder(dst io.Writer, log logging.Logger, options ...func(*Encoder) error) (*Encoder, error) {
	e := &Encoder{
		dst:        dst,
		sampleRate: DefaultSampleRate,
		geo:        DefaultGeometry,
		log:        log,
	}

	for _, option := range options {
		err := option(e)
		if err != nil {
			return nil, fmt.Errorf("option failed with error: %w", err)
		}
	}
	log.Debug("encoder options applied")
	return e, nil
}

// Blocks returns the blocks planned by the last call to Encode.
func (e *Encoder) Blocks() []Block { return e.blocks }

// Encode writes a complete container holding size frame bytes from each of
// left and right.
//
// The loop point and block layout are worked out, and the channel headers
// checked, before anything is written. A frame with an invalid coefficient
// index aborts encoding before that frame's block payload is written; what
// has been written is left in dst.
func (e *Encoder) Encode(left, right Source, size int) error {
	err := dsp.CheckPair(left.Header, right.Header)
	if err != nil {
		return err
	}

	loop, err := LoopAddress(e.loopPoint, e.sampleRate, e.geo)
	if err != nil {
		return errors.Wrapf(err, "loop point %v s at %d Hz", e.loopPoint, e.sampleRate)
	}
	e.log.Info("using loop point", "seconds", e.loopPoint, "address", hex(loop))

	e.blocks, err = Plan(size, loop, e.geo)
	if err != nil {
		return errors.Wrap(err, "could not plan blocks")
	}
	e.log.Debug("planned blocks", "count", len(e.blocks))

	err = e.writeHeader(left.Header, right.Header)
	if err != nil {
		return errors.Wrap(err, "could not write container header")
	}

	chans := [numChannels]*channel{
		{name: "left", src: left.Frames, state: left.Header.Coefficients(), buf: make([]byte, e.geo.ReadSize())},
		{name: "right", src: right.Frames, state: right.Header.Coefficients(), buf: make([]byte, e.geo.ReadSize())},
	}

	var src int // Offset into each channel's frames.
	for _, b := range e.blocks {
		err = e.writeBlock(b, chans, src)
		if err != nil {
			return err
		}
		src += b.ReadBytes
	}
	return nil
}

// writeHeader writes the file header and both channel info records.
func (e *Encoder) writeHeader(left, right *dsp.Header) error {
	var buf [HeaderSize]byte
	copy(buf[:], magic[:])
	binary.BigEndian.PutUint32(buf[8:], e.sampleRate)
	binary.BigEndian.PutUint32(buf[12:], numChannels)
	e.putChannelInfo(buf[fileHeaderSize:], left)
	e.putChannelInfo(buf[fileHeaderSize+channelInfoSize:], right)
	return e.write(buf[:])
}

// putChannelInfo fills b with the channel info record for h:
//
//	0x00 largest block size
//	0x04 2
//	0x08 sample count
//	0x0C 2
//	0x10 decode coefficients
//	0x30 initial decoder state
func (e *Encoder) putChannelInfo(b []byte, h *dsp.Header) {
	binary.BigEndian.PutUint32(b, uint32(e.geo.BlockSize))
	binary.BigEndian.PutUint32(b[4:], channelInfoConst)
	binary.BigEndian.PutUint32(b[8:], h.SampleCount())
	binary.BigEndian.PutUint32(b[12:], channelInfoConst)
	for i, c := range h.Coefs {
		binary.BigEndian.PutUint16(b[16+2*i:], uint16(c))
	}
	copy(b[48:], h.DecodeState[:])
}

// writeBlock reads block b's frames from each channel and writes the block.
// Decoder state is recorded before the frames are decoded, then each
// channel's history is advanced over exactly b.ReadBytes.
func (e *Encoder) writeBlock(b Block, chans [numChannels]*channel, src int) error {
	if e.n != b.Offset {
		return fmt.Errorf("block planned at %#x written at %#x", b.Offset, e.n)
	}

	for _, c := range chans {
		c.buf = c.buf[:b.Padded]
		_, err := io.ReadFull(c.src, c.buf[:b.ReadBytes])
		if err != nil {
			return errors.Wrapf(err, "could not read %s frames at source offset %#x", c.name, dsp.HeaderSize+src)
		}
		clear(c.buf[b.ReadBytes:])
	}

	var head [BlockHeaderSize]byte
	binary.BigEndian.PutUint32(head[0:], uint32(b.DataLength()))
	binary.BigEndian.PutUint32(head[4:], uint32(b.LastByte()))
	binary.BigEndian.PutUint32(head[8:], b.Pointer)
	for i, c := range chans {
		putDecoderState(head[12+i*decoderStateSize:], c)
	}
	err := e.write(head[:])
	if err != nil {
		return errors.Wrapf(err, "could not write block header at %#x", b.Offset)
	}
	e.log.Debug("block", "address", hex(uint32(b.Offset)), "length", hex(uint32(b.DataLength())), "pointer", hex(b.Pointer), "terminal", b.Terminal)

	for _, c := range chans {
		err = c.state.Decode(c.buf[:b.ReadBytes])
		if err != nil {
			return errors.Wrapf(err, "%s channel block at %#x, source offset %#x", c.name, b.Offset, dsp.HeaderSize+src)
		}
		err = e.write(c.buf)
		if err != nil {
			return errors.Wrapf(err, "could not write %s frames of block at %#x", c.name, b.Offset)
		}
	}
	return nil
}

// putDecoderState fills b with c's decoder state record:
//
//	0x00 0
//	0x01 header byte of the next frame
//	0x02 hist1
//	0x04 hist2
//	0x06 0
func putDecoderState(b []byte, c *channel) {
	b[0] = 0
	b[1] = 0
	if len(c.buf) > 0 {
		b[1] = c.buf[0]
	}
	binary.BigEndian.PutUint16(b[2:], uint16(c.state.Hist1))
	binary.BigEndian.PutUint16(b[4:], uint16(c.state.Hist2))
	b[6] = 0
	b[7] = 0
}

func (e *Encoder) write(p []byte) error {
	n, err := e.dst.Write(p)
	e.n += n
	return err
}

func hex(v uint32) string { return fmt.Sprintf("%#x", v) }
