package encode

import (
	"encoding/binary"
	"fmt"
	"os"

	"vgmc/parse"
)

// Encoder carries the conversion state: both chip shadows, their output
// streams, and the per-stream delay counters. Wait commands advance both
// counters; each frame builder consumes its own, so each stream carries the
// complete timeline even when both chips are active in one file.
type Encoder struct {
	psg psgStream
	fm  fmStream

	loopIndex   int
	fmLoopIndex int
	warnings    int

	debug bool
}

// Encode walks the VGM command stream and builds the output buffers.
// Stream anomalies warn and continue; only the reader can fail hard.
func Encode(file parse.File, debug bool) Result {
	e := &Encoder{debug: debug}

	// The zero-frame at pool offset 0 backs delay-only index entries
	e.psg.frameData = []byte{0}
	e.psg.frameOffsets = []int{0}

	e.run(file)

	if debug {
		fmt.Fprintf(os.Stderr, "debug: %d index words, %d fm words, %d pool bytes, loop %d/%d.\n",
			len(e.psg.indexData), len(e.fm.data), len(e.psg.frameData),
			e.loopIndex, e.fmLoopIndex)
	}

	return Result{
		FrameData:    e.psg.frameData,
		IndexData:    e.psg.indexData,
		FmData:       e.fm.data,
		LoopIndex:    e.loopIndex,
		FmLoopIndex:  e.fmLoopIndex,
		UniqueFrames: len(e.psg.frameOffsets),
		Warnings:     e.warnings,
		PsgTicks:     e.psg.ticks,
		FmTicks:      e.fm.ticks,
	}
}

func (e *Encoder) run(file parse.File) {
	data := file.Data

loop:
	for i := file.DataStart; i < len(data) && data[i] != 0x66 && e.withinBounds(); {
		if i == file.LoopOffset {
			e.loopIndex = len(e.psg.indexData)
			e.fmLoopIndex = len(e.fm.data)
			fmt.Fprintf(os.Stderr, "Loop frame index: %d.\n", e.loopIndex)
			fmt.Fprintf(os.Stderr, "Loop frame index (fm): %d.\n", e.fmLoopIndex)
		}

		command := data[i]
		i++

		switch {
		case command == 0x4f: // Game Gear stereo - ignore
			if i >= len(data) {
				e.warnf("Truncated command %02x.", command)
				break loop
			}
			i++

		case command == 0x50: // PSG data
			if i >= len(data) {
				e.warnf("Truncated command %02x.", command)
				break loop
			}
			if e.psg.samplesDelay >= SamplesPerFrame {
				e.psgWriteFrame()
			}
			e.psgRegisterWrite(data[i])
			i++

		case command == 0x51: // YM2413 address, data
			if i+1 >= len(data) {
				e.warnf("Truncated command %02x.", command)
				break loop
			}
			if e.fm.samplesDelay >= SamplesPerFrame {
				e.fmWriteFrame()
			}
			e.ymRegisterWrite(data[i], data[i+1])
			i += 2

		case command == 0x61: // Wait n 44.1 kHz samples
			if i+1 >= len(data) {
				e.warnf("Truncated command %02x.", command)
				break loop
			}
			e.addDelay(uint32(binary.LittleEndian.Uint16(data[i : i+2])))
			i += 2

		case command == 0x62: // Wait 1/60 of a second
			e.addDelay(735)

		case command == 0x63: // Wait 1/50 of a second
			e.addDelay(882)

		case command >= 0x70 && command <= 0x7f: // Wait n+1 samples
			e.addDelay(uint32(command&0x0f) + 1)

		default:
			e.warnf("Unknown command %02x.", command)
		}
	}

	// Final frames for whichever chips the file actually wrote
	if e.psg.active {
		e.psgWriteFrame()
	}
	if e.fm.active {
		e.fmWriteFrame()
	}
}

func (e *Encoder) addDelay(samples uint32) {
	e.psg.samplesDelay += samples
	e.fm.samplesDelay += samples
}

func (e *Encoder) withinBounds() bool {
	size := len(e.psg.frameData) + len(e.fm.data)*2
	return size < OutputSizeMax &&
		len(e.psg.indexData) < OutputSizeMax &&
		len(e.fm.data) < OutputSizeMax
}

func (e *Encoder) warnf(format string, args ...any) {
	e.warnings++
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
