/*
NAME
  options.go

DESCRIPTION
  options.go provides option functions that can be provided to the HPS
  encoder's constructor NewEncoder. These set the sample rate, the loop point
  and the block size.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package hps

import "math"

// SampleRate sets the sample rate recorded in the container and used to
// locate the loop point. The default is 32000 Hz.
func SampleRate(rate uint32) func(*Encoder) error {
	return func(e *Encoder) error {
		if rate == 0 {
			return ErrInvalidSampleRate
		}
		e.sampleRate = rate
		e.log.Debug("configured sample rate", "rate", rate)
		return nil
	}
}

// LoopPoint sets the time in seconds playback loops back to. The default of
// zero loops to the start.
func LoopPoint(seconds float64) func(*Encoder) error {
	return func(e *Encoder) error {
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return ErrInvalidLoopPoint
		}
		e.loopPoint = seconds
		e.log.Debug("configured loop point", "seconds", seconds)
		return nil
	}
}

// BlockSize sets the payload size of a full block, which must be a multiple
// of 64. The default is 0x10000.
func BlockSize(n int) func(*Encoder) error {
	return func(e *Encoder) error {
		g := Geometry{BlockSize: n}
		err := g.Validate()
		if err != nil {
			return err
		}
		e.geo = g
		e.log.Debug("configured block size", "size", n)
		return nil
	}
}
