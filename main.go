package main

import (
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
	"golang.org/x/term"

	"vgmc/compress"
	"vgmc/encode"
	"vgmc/parse"
	"vgmc/serialize"
	"vgmc/validate"
)

// Firmware program memory minus the player itself
const romBudget = 8192 - 724

var stderrTTY = term.IsTerminal(int(os.Stderr.Fd()))

func fatalf(format string, args ...any) {
	if stderrTTY {
		fmt.Fprint(os.Stderr, "\x1b[31m")
	}
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	if stderrTTY {
		fmt.Fprint(os.Stderr, "\x1b[0m")
	}
	os.Exit(1)
}

func warnf(format string, args ...any) {
	if stderrTTY {
		fmt.Fprint(os.Stderr, "\x1b[33m")
	}
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	if stderrTTY {
		fmt.Fprint(os.Stderr, "\x1b[0m")
	}
}

func main() {
	if len(os.Args) != 2 {
		fatalf("No VGM file specified.")
	}

	file, err := parse.Load(os.Args[1])
	if err != nil {
		fatalf("%v.", err)
	}

	fmt.Fprintf(os.Stderr, "Version: %x.\n", file.Version)
	fmt.Fprintf(os.Stderr, "Clock rate: %d Hz.\n", file.ClockHz)
	fmt.Fprintf(os.Stderr, "Rate: %d Hz.\n", file.Rate)
	fmt.Fprintf(os.Stderr, "VGM offset: %02x.\n", file.DataStart)
	fmt.Fprintf(os.Stderr, "Loop offset: %02x.\n", file.LoopOffset)

	result := encode.Encode(file, env.Bool("VGMC_DEBUG"))

	comp := compress.Compress(result.IndexData, result.LoopIndex)
	fmt.Fprintf(os.Stderr, "Compressed indexes: %d bytes (%d indexes).\n",
		len(comp.Data)*2, len(comp.Data))

	if !env.Bool("VGMC_NO_VERIFY") {
		if len(result.FrameData) > encode.FramePoolLimit {
			// Truncated pool offsets cannot replay; the output is still
			// written so the author can inspect it
			warnf("Frame data exceeds 12-bit indexing, skipping verification.")
		} else if err := validate.Streams(result, comp); err != nil {
			fatalf("Converted stream failed verification: %v.", err)
		}
	}

	total := len(result.FrameData) + len(comp.Data)*2 + len(result.FmData)*2
	if total >= romBudget {
		warnf("Output size %d.%02d KiB may not fit on ATMEGA-8.",
			total/1024, (total%1024)*100/1024)
	}

	serialize.WriteHeader(os.Stdout, result, comp)

	fmt.Fprintf(os.Stderr, "Done.\n")
	fmt.Fprintf(os.Stderr, " - %d bytes of frame data. (%d unique frames)\n",
		len(result.FrameData), result.UniqueFrames)
	fmt.Fprintf(os.Stderr, " - %d bytes of index data.\n", len(comp.Data)*2)
	fmt.Fprintf(os.Stderr, " - %d bytes of fm data.\n", len(result.FmData)*2)
	fmt.Fprintf(os.Stderr, " - %d bytes total.\n", total)
}
