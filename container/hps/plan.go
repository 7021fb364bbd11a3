/*
NAME
  plan.go

DESCRIPTION
  plan.go divides a stereo ADPCM stream into HPS blocks.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package hps

// Block describes one block of the container.
type Block struct {
	Offset    int    // Container address of the block.
	ReadBytes int    // Frame bytes taken from each channel.
	Padded    int    // ReadBytes padded to the payload alignment.
	Terminal  bool   // Last block in the stream.
	Pointer   uint32 // Address of the next block, or the loop address if Terminal.
}

// DataLength returns the data length field of the block header.
func (b Block) DataLength() int { return numChannels * b.Padded }

// LastByte returns the last byte index field of the block header.
//
// The last block's value is derived from the frame bytes actually read
// rather than the padded length. It has not been checked against the player.
func (b Block) LastByte() int {
	if b.Terminal {
		return (b.ReadBytes*2+b.DataLength())/2 - 1
	}
	return b.DataLength() - 1
}

// Size returns the size of the block in the container.
func (b Block) Size() int { return BlockHeaderSize + b.DataLength() }

// Plan returns the blocks needed to hold size frame bytes per channel with
// the stream looping to the container address loop.
//
// Blocks are full sized except for the last, which holds what remains, and
// the block whose extent contains loop, which is cut short to end at loop.
func Plan(size int, loop uint32, g Geometry) ([]Block, error) {
	err := g.Validate()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, ErrEmptyStream
	}
	src, err := g.sourceOffset(loop)
	if err != nil {
		return nil, err
	}
	if src >= size {
		return nil, ErrLoopOutOfRange
	}

	n := numBlocks(size, loop, g)
	blocks := make([]Block, 0, n)
	off, read := HeaderSize, 0
	for i := 0; i < n-1; i++ {
		r := g.ReadSize()
		if off < int(loop) && off+g.BytesPerBlock() > int(loop) {
			r = (int(loop) - off - BlockHeaderSize) / numChannels
		}
		b := Block{Offset: off, ReadBytes: r, Padded: padded(r)}
		b.Pointer = uint32(off + b.Size())
		blocks = append(blocks, b)
		off += b.Size()
		read += r
	}

	r := size - read
	return append(blocks, Block{
		Offset:    off,
		ReadBytes: r,
		Padded:    padded(r),
		Terminal:  true,
		Pointer:   loop,
	}), nil
}

// numBlocks returns the number of blocks Plan produces. One block is added
// when loop is not on a block boundary, for the short block ending at loop.
func numBlocks(size int, loop uint32, g Geometry) int {
	short := (int(loop) - HeaderSize) % g.BytesPerBlock()
	if short > 0 {
		size -= (short - BlockHeaderSize) / numChannels
		return ceilDiv(size, g.ReadSize()) + 1
	}
	return ceilDiv(size, g.ReadSize())
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
