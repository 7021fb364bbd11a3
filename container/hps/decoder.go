/*
NAME
  decoder.go

DESCRIPTION
  decoder.go provides a decoder that walks the block chain of an HPS
  container.

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
	"io"

	"github.com/pkg/errors"
)

// Errors returned by the Decoder.
var (
	ErrBadMagic    = errors.New("not an HPS container")
	ErrNotStereo   = errors.New("HPS container is not stereo")
	ErrBadBlock    = errors.New("malformed block header")
	ErrLoopMissing = errors.New("loop address is not the start of a block")
)

// ChannelInfo is a channel info record of the container header.
type ChannelInfo struct {
	BlockSize   uint32
	SampleCount uint32
	Coefs       [16]int16
	State       [decoderStateSize]byte
}

// Header is the container header.
type Header struct {
	SampleRate uint32
	Channels   [numChannels]ChannelInfo
}

// State is a decoder state record from a block header.
type State struct {
	Frame        byte // Header byte of the first frame in the block.
	Hist1, Hist2 int16
}

// BlockHeader is a decoded block header.
type BlockHeader struct {
	Offset     int
	DataLength uint32
	LastByte   uint32
	Pointer    uint32
	States     [numChannels]State
}

// Terminal reports whether b is the last block, i.e. its pointer leads back
// to an earlier block rather than to the block that follows it.
func (b BlockHeader) Terminal() bool {
	return int(b.Pointer) != b.Offset+BlockHeaderSize+int(b.DataLength)
}

// FrameBytes returns the frame bytes each channel holds in the block,
// excluding padding.
func (b BlockHeader) FrameBytes() int {
	half := int(b.DataLength) / numChannels
	if b.Terminal() {
		return int(b.LastByte) + 1 - half
	}
	return half
}

// Decoder reads the blocks of an HPS container in stream order.
type Decoder struct {
	r      io.Reader
	n      int // Bytes read from r.
	hdr    Header
	starts map[uint32]bool
	done   bool
	buf    []byte
}

// NewDecoder reads the container header from r and returns a Decoder
// positioned at the first block.
func NewDecoder(r io.Reader) (*Decoder, error) {
	var b [HeaderSize]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return nil, errors.Wrap(err, "could not read container header")
	}
	if [8]byte(b[:8]) != magic {
		return nil, ErrBadMagic
	}
	if binary.BigEndian.Uint32(b[12:]) != numChannels {
		return nil, ErrNotStereo
	}

	d := &Decoder{r: r, n: HeaderSize, starts: make(map[uint32]bool)}
	d.hdr.SampleRate = binary.BigEndian.Uint32(b[8:])
	for i := range d.hdr.Channels {
		c := b[fileHeaderSize+i*channelInfoSize:]
		info := &d.hdr.Channels[i]
		info.BlockSize = binary.BigEndian.Uint32(c)
		info.SampleCount = binary.BigEndian.Uint32(c[8:])
		for j := range info.Coefs {
			info.Coefs[j] = int16(binary.BigEndian.Uint16(c[16+2*j:]))
		}
		copy(info.State[:], c[48:])
	}
	return d, nil
}

// Header returns the container header.
func (d *Decoder) Header() Header { return d.hdr }

// Next returns the next block header and the frames of each channel,
// excluding padding. The returned frames are only valid until the next call.
// io.EOF is returned after the terminal block.
func (d *Decoder) Next() (BlockHeader, [numChannels][]byte, error) {
	var frames [numChannels][]byte
	if d.done {
		return BlockHeader{}, frames, io.EOF
	}

	var head [BlockHeaderSize]byte
	_, err := io.ReadFull(d.r, head[:])
	if err != nil {
		return BlockHeader{}, frames, errors.Wrapf(noEOF(err), "could not read block header at %#x", d.n)
	}
	b := BlockHeader{
		Offset:     d.n,
		DataLength: binary.BigEndian.Uint32(head[0:]),
		LastByte:   binary.BigEndian.Uint32(head[4:]),
		Pointer:    binary.BigEndian.Uint32(head[8:]),
	}
	for i := range b.States {
		s := head[12+i*decoderStateSize:]
		b.States[i] = State{
			Frame: s[1],
			Hist1: int16(binary.BigEndian.Uint16(s[2:])),
			Hist2: int16(binary.BigEndian.Uint16(s[4:])),
		}
	}
	d.n += BlockHeaderSize

	// Channel info records the largest block, which bounds every block.
	if b.DataLength == 0 || b.DataLength%(numChannels*alignment) != 0 || b.DataLength > d.hdr.Channels[0].BlockSize {
		return b, frames, errors.Wrapf(ErrBadBlock, "data length %#x at %#x", b.DataLength, b.Offset)
	}
	n := b.FrameBytes()
	if n <= 0 || n > int(b.DataLength)/numChannels {
		return b, frames, errors.Wrapf(ErrBadBlock, "last byte %#x at %#x", b.LastByte, b.Offset)
	}

	if cap(d.buf) < int(b.DataLength) {
		d.buf = make([]byte, b.DataLength)
	}
	d.buf = d.buf[:b.DataLength]
	_, err = io.ReadFull(d.r, d.buf)
	if err != nil {
		return b, frames, errors.Wrapf(noEOF(err), "could not read frames of block at %#x", b.Offset)
	}
	d.n += len(d.buf)
	d.starts[uint32(b.Offset)] = true

	half := len(d.buf) / numChannels
	for i := range frames {
		frames[i] = d.buf[i*half : i*half+n]
	}

	if b.Terminal() {
		d.done = true
		if !d.starts[b.Pointer] {
			return b, frames, errors.Wrapf(ErrLoopMissing, "%#x", b.Pointer)
		}
	}
	return b, frames, nil
}

// noEOF turns io.EOF into io.ErrUnexpectedEOF, since the stream must end
// with a terminal block.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
