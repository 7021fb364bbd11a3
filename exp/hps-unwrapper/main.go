/*
NAME
  main.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// hps-unwrapper walks the block chain of an HPS file, printing each block,
// and optionally writes the ADPCM frames of each channel to separate files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/hps/container/hps"
	"github.com/ausocean/utils/logging"
)

func main() {
	var inPath, leftPath, rightPath string
	var quiet bool
	flag.StringVar(&inPath, "in", "stream.hps", "file path of input")
	flag.StringVar(&leftPath, "left", "", "file path for left channel frames")
	flag.StringVar(&rightPath, "right", "", "file path for right channel frames")
	flag.BoolVar(&quiet, "q", false, "only print the container header and totals")
	flag.Parse()

	l := logging.New(logging.Info, os.Stderr, true)

	f, err := os.Open(inPath)
	if err != nil {
		l.Fatal("could not open input", "error", err)
	}
	defer f.Close()

	d, err := hps.NewDecoder(f)
	if err != nil {
		l.Fatal("could not read header", "error", err)
	}
	hdr := d.Header()
	fmt.Printf("sample rate: %d\n", hdr.SampleRate)
	for i, c := range hdr.Channels {
		fmt.Printf("channel %d: block size %#x, %d samples\n", i, c.BlockSize, c.SampleCount)
	}

	var frames [2][]byte
	var n int
	for {
		b, fr, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.Fatal("could not read block", "error", err)
		}
		n++
		if !quiet {
			fmt.Printf("block %#x: length %#x, last byte %#x, next %#x, history %d/%d %d/%d\n",
				b.Offset, b.DataLength, b.LastByte, b.Pointer,
				b.States[0].Hist1, b.States[0].Hist2, b.States[1].Hist1, b.States[1].Hist2)
		}
		if b.Terminal() {
			fmt.Printf("loops to %#x\n", b.Pointer)
		}
		for i := range frames {
			frames[i] = append(frames[i], fr[i]...)
		}
	}
	fmt.Printf("%d blocks, %#x frame bytes per channel\n", n, len(frames[0]))

	for i, path := range []string{leftPath, rightPath} {
		if path == "" {
			continue
		}
		err = os.WriteFile(path, frames[i], 0644)
		if err != nil {
			l.Fatal("could not write frames", "path", path, "error", err)
		}
		fmt.Println("wrote", len(frames[i]), "bytes to file", path)
	}
}
