// Package serialize emits the conversion result as a C header for the
// playback firmware's program memory.
package serialize

import (
	"fmt"
	"io"

	"vgmc/compress"
	"vgmc/encode"
)

// WriteHeader writes the loop constants and the three data arrays. The
// layout (16 bytes or 8 words per row, lowercase hex) matches what the
// firmware sources already include, so regenerated headers diff cleanly.
func WriteHeader(w io.Writer, r encode.Result, c compress.Result) {
	fmt.Fprintf(w, "#define LOOP_FRAME_INDEX_INNER %d\n", c.Loop.Inner)
	fmt.Fprintf(w, "#define LOOP_FRAME_INDEX_OUTER %d\n", c.Loop.Outer)
	fmt.Fprintf(w, "#define LOOP_FRAME_SEGMENT_END %d\n", c.Loop.SegmentEnd)
	fmt.Fprintf(w, "#define END_FRAME_INDEX %d\n\n", len(c.Data))

	fmt.Fprintf(w, "#define FM_LOOP_FRAME_INDEX %d\n", r.FmLoopIndex)
	fmt.Fprintf(w, "#define FM_LOOP_END %d\n", len(r.FmData))

	writeByteArray(w, "frame_data", r.FrameData)
	fmt.Fprintf(w, "\n")
	writeWordArray(w, "index_data", c.Data)
	writeWordArray(w, "fm_data", r.FmData)
}

func writeByteArray(w io.Writer, name string, data []byte) {
	fmt.Fprintf(w, "const uint8_t %s [] PROGMEM = {\n", name)
	for i, b := range data {
		if i%16 == 0 {
			fmt.Fprintf(w, "    ")
		}
		if i == len(data)-1 {
			fmt.Fprintf(w, "0x%02x\n", b)
			break
		}
		fmt.Fprintf(w, "0x%02x,", b)
		if i%16 == 15 {
			fmt.Fprintf(w, "\n")
		} else {
			fmt.Fprintf(w, " ")
		}
	}
	fmt.Fprintf(w, "};\n")
}

func writeWordArray(w io.Writer, name string, data []uint16) {
	fmt.Fprintf(w, "const uint16_t %s [] PROGMEM = {\n", name)
	for i, v := range data {
		if i%8 == 0 {
			fmt.Fprintf(w, "    ")
		}
		if i == len(data)-1 {
			fmt.Fprintf(w, "0x%04x\n", v)
			break
		}
		fmt.Fprintf(w, "0x%04x,", v)
		if i%8 == 7 {
			fmt.Fprintf(w, "\n")
		} else {
			fmt.Fprintf(w, " ")
		}
	}
	fmt.Fprintf(w, "};\n")
}
