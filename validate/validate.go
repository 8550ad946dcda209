package validate

import (
	"fmt"

	"vgmc/compress"
	"vgmc/encode"
)

// Streams checks the complete conversion against the traces recorded while
// encoding: both index stream forms and the FM stream must replay to the
// states the encoder saw, reference words must stay inside their own
// prefix, and resuming from the loop anchors must reproduce the
// uncompressed stream from the loop position. Returns the first mismatch.
func Streams(r encode.Result, c compress.Result) error {
	if err := bounds(r, c); err != nil {
		return err
	}

	ticks, err := DecodeIndexes(r.FrameData, r.IndexData)
	if err != nil {
		return fmt.Errorf("index stream: %w", err)
	}
	if err := comparePsg(r.PsgTicks, ticks); err != nil {
		return fmt.Errorf("index stream: %w", err)
	}

	expanded, err := Expand(c.Data)
	if err != nil {
		return fmt.Errorf("compressed stream: %w", err)
	}
	if err := compareWords(r.IndexData, expanded); err != nil {
		return fmt.Errorf("compressed stream: %w", err)
	}

	if len(r.IndexData) > 0 {
		looped, err := PlayFromAnchors(c.Data, c.Loop)
		if err != nil {
			return fmt.Errorf("loop anchors: %w", err)
		}
		if err := compareWords(r.IndexData[r.LoopIndex:], looped); err != nil {
			return fmt.Errorf("loop anchors: %w", err)
		}
		if err := playerCheck(r.IndexData, r.LoopIndex, c); err != nil {
			return fmt.Errorf("player simulation: %w", err)
		}
	}

	fmTicks, err := DecodeFm(r.FmData)
	if err != nil {
		return fmt.Errorf("fm stream: %w", err)
	}
	if err := compareFm(r.FmTicks, fmTicks); err != nil {
		return fmt.Errorf("fm stream: %w", err)
	}

	return nil
}

// playerCheck drives the tick-level player through one full pass and one
// wrapped pass, expecting the uncompressed stream and then its tail from
// the loop position.
func playerCheck(indexData []uint16, loopIndex int, c compress.Result) error {
	p := NewPlayer(c)
	for i, want := range indexData {
		w, err := p.NextWord()
		if err != nil {
			return err
		}
		if w != want {
			return fmt.Errorf("tick %d: word %04x, want %04x", i, w, want)
		}
	}
	for i := loopIndex; i < len(indexData); i++ {
		w, err := p.NextWord()
		if err != nil {
			return err
		}
		if w != indexData[i] {
			return fmt.Errorf("wrapped tick %d: word %04x, want %04x", i, w, indexData[i])
		}
	}
	return nil
}

func bounds(r encode.Result, c compress.Result) error {
	for n, w := range r.IndexData {
		if w&refBit != 0 {
			return fmt.Errorf("index word %d has the reserved bit set", n)
		}
		if offset := int(w & 0x0fff); offset >= len(r.FrameData) {
			return fmt.Errorf("index word %d addresses pool offset %d of %d",
				n, offset, len(r.FrameData))
		}
	}
	for p, w := range c.Data {
		if w&refBit == 0 {
			continue
		}
		start := int(w & 0x0fff)
		length := int(w>>12&0x07) + 2
		if start+length > p {
			return fmt.Errorf("reference at %d reaches past itself: start %d length %d",
				p, start, length)
		}
	}
	return nil
}

func comparePsg(want, got []encode.PsgTick) error {
	if len(want) != len(got) {
		return fmt.Errorf("decoded %d ticks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].State != want[i].State {
			return fmt.Errorf("tick %d: state %+v, want %+v", i, got[i].State, want[i].State)
		}
		if got[i].Delay != want[i].Delay {
			return fmt.Errorf("tick %d: delay %d, want %d", i, got[i].Delay, want[i].Delay)
		}
	}
	return nil
}

func compareWords(want, got []uint16) error {
	if len(want) != len(got) {
		return fmt.Errorf("decoded %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("word %d: %04x, want %04x", i, got[i], want[i])
		}
	}
	return nil
}

func compareFm(want, got []encode.FmTick) error {
	if len(want) != len(got) {
		return fmt.Errorf("decoded %d ticks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Delay != want[i].Delay {
			return fmt.Errorf("tick %d: delay %d, want %d", i, got[i].Delay, want[i].Delay)
		}
		if len(got[i].Writes) != len(want[i].Writes) {
			return fmt.Errorf("tick %d: %d writes, want %d",
				i, len(got[i].Writes), len(want[i].Writes))
		}
		for j := range want[i].Writes {
			if got[i].Writes[j] != want[i].Writes[j] {
				return fmt.Errorf("tick %d write %d: %+v, want %+v",
					i, j, got[i].Writes[j], want[i].Writes[j])
			}
		}
	}
	return nil
}
