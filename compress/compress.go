// Package compress rewrites the index stream as a mix of literal words and
// back-references into the already-emitted compressed stream.
package compress

const refBit = 0x8000

// Anchors is what the player needs to resume playback at the loop point
// when the loop frame landed inside a referenced segment: it re-reads from
// Inner until SegmentEnd, then continues at Outer.
type Anchors struct {
	Inner      uint16
	Outer      uint16
	SegmentEnd uint16
}

type Result struct {
	Data []uint16
	Loop Anchors
}

// Compress performs a greedy longest-match pass over the index stream.
//
// For each input position the compressed prefix is scanned for the longest
// run of equal words; the earliest start wins a tie. Matches of 2..9 words
// become one reference word (3 bits of length, 12 bits of start), anything
// shorter is copied verbatim. Greedy matching is deliberate: the output is
// consumed as a fixed binary by the playback firmware, and a smarter parse
// would change it. The input is a few thousand words at most, so the
// quadratic scan is fine.
//
// The loop anchors are recorded at the first emission whose input range
// covers loopIndex.
func Compress(indexData []uint16, loopIndex int) Result {
	var out []uint16
	var loop Anchors

	matchLen := 0
	for i := 0; i < len(indexData); i += matchLen {
		bestStart, bestLen := 0, 0
		matchLen = 0

		for j := 0; j < len(out); j++ {
			for k := 0; i+k < len(indexData) && j+k < len(out); k++ {
				if out[j+k] != indexData[i+k] {
					break
				}
				if k+1 > bestLen {
					bestStart, bestLen = j, k+1
				}
			}
		}

		if bestLen >= 2 {
			if bestLen > 9 {
				bestLen = 9
			}
			out = append(out, refBit|uint16(bestLen-2)<<12|uint16(bestStart))
			matchLen = bestLen
		} else {
			out = append(out, indexData[i])
			matchLen = 1
		}

		if loop.Outer == 0 && i+matchLen-1 >= loopIndex {
			// Outer points at the next compressed element after this segment
			loop.Outer = uint16(len(out))
			if bestLen >= 2 {
				depth := loopIndex - i
				loop.Inner = uint16(bestStart + depth)
				loop.SegmentEnd = uint16(bestStart + matchLen)
			} else {
				loop.Inner = loop.Outer - 1
				loop.SegmentEnd = loop.Outer
			}
		}
	}

	return Result{Data: out, Loop: loop}
}
