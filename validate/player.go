// Package validate replays the converter's output the way the playback
// firmware does and compares the reconstruction against the traces recorded
// during encoding.
package validate

import (
	"fmt"

	"vgmc/compress"
	"vgmc/encode"
)

const refBit = 0x8000

// nibbleReader walks packed frame data, low nibble first, the way the
// player's nibble-high flag does.
type nibbleReader struct {
	data []byte
	pos  int
	high bool
}

func (r *nibbleReader) next() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("frame data exhausted at offset %d", r.pos)
	}
	if !r.high {
		r.high = true
		return r.data[r.pos] & 0x0f, nil
	}
	n := r.data[r.pos] >> 4
	r.high = false
	r.pos++
	return n, nil
}

func (r *nibbleReader) tone() (uint16, error) {
	lo, err := r.next()
	if err != nil {
		return 0, err
	}
	mid, err := r.next()
	if err != nil {
		return 0, err
	}
	hi, err := r.next()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(mid)<<4 | uint16(hi)<<8, nil
}

// applyFrame reads the frame at offset and applies it to state.
func applyFrame(frameData []byte, offset int, state *encode.PsgState) error {
	if offset >= len(frameData) {
		return fmt.Errorf("frame offset %d outside pool of %d bytes", offset, len(frameData))
	}
	header := frameData[offset]
	r := nibbleReader{data: frameData, pos: offset + 1}

	var err error
	if header&0x01 != 0 {
		if state.Tone0, err = r.tone(); err != nil {
			return err
		}
	}
	if header&0x02 != 0 {
		if state.Tone1, err = r.tone(); err != nil {
			return err
		}
	}
	if header&0x04 != 0 {
		if state.Tone2, err = r.tone(); err != nil {
			return err
		}
	}
	if header&0x08 != 0 {
		if state.Noise, err = r.next(); err != nil {
			return err
		}
	}
	if header&0x10 != 0 {
		if state.Volume0, err = r.next(); err != nil {
			return err
		}
	}
	if header&0x20 != 0 {
		if state.Volume1, err = r.next(); err != nil {
			return err
		}
	}
	if header&0x40 != 0 {
		if state.Volume2, err = r.next(); err != nil {
			return err
		}
	}
	if header&0x80 != 0 {
		if state.Volume3, err = r.next(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeIndexes plays a stream of literal index words, reconstructing the
// register state carried by each.
func DecodeIndexes(frameData []byte, words []uint16) ([]encode.PsgTick, error) {
	var state encode.PsgState
	ticks := make([]encode.PsgTick, 0, len(words))

	for n, w := range words {
		if w&refBit != 0 {
			return nil, fmt.Errorf("reference word %04x in literal stream at %d", w, n)
		}
		delay := int(w>>12&0x07) + 1
		offset := int(w & 0x0fff)
		if err := applyFrame(frameData, offset, &state); err != nil {
			return nil, fmt.Errorf("word %d: %w", n, err)
		}
		ticks = append(ticks, encode.PsgTick{State: state, Delay: delay})
	}

	return ticks, nil
}

// Expand resolves a compressed stream back into literal index words.
// References copy already-emitted literal words; a reference that lands on
// another reference is invalid, as the player reads the target directly.
func Expand(comp []uint16) ([]uint16, error) {
	return expandFrom(comp, 0)
}

func expandFrom(comp []uint16, from int) ([]uint16, error) {
	var out []uint16
	for p := from; p < len(comp); p++ {
		w := comp[p]
		if w&refBit == 0 {
			out = append(out, w)
			continue
		}
		start := int(w & 0x0fff)
		length := int(w>>12&0x07) + 2
		if start+length > len(comp) {
			return nil, fmt.Errorf("reference at %d overruns stream: start %d length %d", p, start, length)
		}
		for a := 0; a < length; a++ {
			v := comp[start+a]
			if v&refBit != 0 {
				return nil, fmt.Errorf("reference at %d targets a reference at %d", p, start+a)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// PlayFromAnchors reproduces what the player emits after wrapping at the
// end of the stream: the tail of the loop segment from Inner to SegmentEnd,
// then normal playback from Outer.
func PlayFromAnchors(comp []uint16, loop compress.Anchors) ([]uint16, error) {
	inner, end, outer := int(loop.Inner), int(loop.SegmentEnd), int(loop.Outer)
	if end > len(comp) || inner > end || outer > len(comp) {
		return nil, fmt.Errorf("loop anchors (%d, %d, %d) outside stream of %d words",
			inner, outer, end, len(comp))
	}

	var out []uint16
	for p := inner; p < end; p++ {
		w := comp[p]
		if w&refBit != 0 {
			return nil, fmt.Errorf("loop segment contains a reference at %d", p)
		}
		out = append(out, w)
	}

	rest, err := expandFrom(comp, outer)
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

// DecodeFm groups FM words back into per-tick write sets.
func DecodeFm(words []uint16) ([]encode.FmTick, error) {
	var ticks []encode.FmTick
	var writes []encode.FmWrite

	for n, w := range words {
		switch w >> 14 {
		case 3: // write, more follow this tick
			writes = append(writes, encode.FmWrite{Addr: byte(w >> 8 & 0x3f), Data: byte(w)})
		case 0: // write, one frame follows
			writes = append(writes, encode.FmWrite{Addr: byte(w >> 8 & 0x3f), Data: byte(w)})
			ticks = append(ticks, encode.FmTick{Writes: writes, Delay: 1})
			writes = nil
		case 1: // write, two frames follow
			writes = append(writes, encode.FmWrite{Addr: byte(w >> 8 & 0x3f), Data: byte(w)})
			ticks = append(ticks, encode.FmTick{Writes: writes, Delay: 2})
			writes = nil
		case 2: // delay only
			ticks = append(ticks, encode.FmTick{Writes: writes, Delay: int(w & 0xff)})
			writes = nil
		}
		if n == len(words)-1 && writes != nil {
			return nil, fmt.Errorf("fm stream ends mid-tick with %d writes pending", len(writes))
		}
	}

	return ticks, nil
}
