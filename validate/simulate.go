package validate

import (
	"fmt"

	"vgmc/compress"
)

// Player walks a compressed index stream one entry per tick, keeping the
// same outer/inner/segment-end cursors the playback firmware keeps. At the
// stream end it wraps through the loop anchors, which may drop it back into
// the middle of a referenced segment.
type Player struct {
	comp []uint16
	loop compress.Anchors

	outer      int
	inner      int
	segmentEnd int
}

func NewPlayer(c compress.Result) *Player {
	return &Player{comp: c.Data, loop: c.Loop}
}

// NextWord fetches the index word for the next tick.
func (p *Player) NextWord() (uint16, error) {
	if p.inner == p.segmentEnd {
		if p.outer == len(p.comp) {
			p.outer = int(p.loop.Outer)
			p.inner = int(p.loop.Inner)
			p.segmentEnd = int(p.loop.SegmentEnd)
		}
		if p.inner == p.segmentEnd {
			if p.outer >= len(p.comp) {
				return 0, fmt.Errorf("outer cursor %d outside stream of %d words",
					p.outer, len(p.comp))
			}
			element := p.comp[p.outer]
			p.outer++
			if element&refBit != 0 {
				p.inner = int(element & 0x0fff)
				p.segmentEnd = p.inner + int(element>>12&0x07) + 2
			} else {
				p.inner = p.outer - 1
				p.segmentEnd = p.outer
			}
		}
	}

	if p.inner >= len(p.comp) {
		return 0, fmt.Errorf("inner cursor %d outside stream of %d words",
			p.inner, len(p.comp))
	}
	w := p.comp[p.inner]
	p.inner++
	if w&refBit != 0 {
		return 0, fmt.Errorf("segment entry at %d is a reference", p.inner-1)
	}
	return w, nil
}
