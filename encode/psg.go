package encode

type psgStream struct {
	state    PsgState
	previous PsgState
	latch    byte

	samplesDelay uint32
	active       bool

	frameData    []byte
	frameOffsets []int
	indexData    []uint16
	ticks        []PsgTick
}

// psgRegisterWrite applies one PSG command byte to the shadow state.
//
// A latch byte (high bit set) selects a target in bits 6..4 and carries the
// low data nibble. A data byte addresses the most recent latch target; for
// the tone targets it replaces bits 9..4, while volume and noise targets
// take the low nibble regardless of byte flavour. Existing streams were
// generated with that volume/noise handling, so it stays.
func (e *Encoder) psgRegisterWrite(data byte) {
	p := &e.psg
	p.active = true
	dataLow := uint16(data & 0x0f)
	dataHigh := uint16(data) << 4

	if data&0x80 != 0 {
		p.latch = data & 0x70
	}
	latched := data&0x80 != 0

	switch p.latch {
	case 0x00: // Tone0
		if latched {
			p.state.Tone0 = p.state.Tone0&0x3f0 | dataLow
		} else {
			p.state.Tone0 = p.state.Tone0&0x00f | dataHigh
		}
	case 0x10:
		p.state.Volume0 = byte(dataLow)
	case 0x20: // Tone1
		if latched {
			p.state.Tone1 = p.state.Tone1&0x3f0 | dataLow
		} else {
			p.state.Tone1 = p.state.Tone1&0x00f | dataHigh
		}
	case 0x30:
		p.state.Volume1 = byte(dataLow)
	case 0x40: // Tone2
		if latched {
			p.state.Tone2 = p.state.Tone2&0x3f0 | dataLow
		} else {
			p.state.Tone2 = p.state.Tone2&0x00f | dataHigh
		}
	case 0x50:
		p.state.Volume2 = byte(dataLow)
	case 0x60: // Noise
		p.state.Noise = byte(dataLow)
	case 0x70:
		p.state.Volume3 = byte(dataLow)
	}
}

// generateFrame packs the registers that changed since the previous frame.
//
// One header byte of presence bits, then nibbles in a fixed order: three per
// changed tone (low 4, mid 4, high 2), one for noise, one per changed
// volume. Nibbles pack two per byte, least-significant first, with an odd
// trailing nibble padded to a whole byte. The previous state is snapshotted
// on the way out.
func (e *Encoder) generateFrame() []byte {
	p := &e.psg
	frame := make([]byte, 1, FrameSizeMax)
	nibbles := make([]byte, 0, 14)

	if p.state.Tone0 != p.previous.Tone0 {
		frame[0] |= tone0Bit
		nibbles = append(nibbles,
			byte(p.state.Tone0&0x00f),
			byte(p.state.Tone0&0x0f0)>>4,
			byte((p.state.Tone0&0x300)>>8))
	}
	if p.state.Tone1 != p.previous.Tone1 {
		frame[0] |= tone1Bit
		nibbles = append(nibbles,
			byte(p.state.Tone1&0x00f),
			byte(p.state.Tone1&0x0f0)>>4,
			byte((p.state.Tone1&0x300)>>8))
	}
	if p.state.Tone2 != p.previous.Tone2 {
		frame[0] |= tone2Bit
		nibbles = append(nibbles,
			byte(p.state.Tone2&0x00f),
			byte(p.state.Tone2&0x0f0)>>4,
			byte((p.state.Tone2&0x300)>>8))
	}
	if p.state.Noise != p.previous.Noise {
		frame[0] |= noiseBit
		nibbles = append(nibbles, p.state.Noise&0x0f)
	}
	if p.state.Volume0 != p.previous.Volume0 {
		frame[0] |= volume0Bit
		nibbles = append(nibbles, p.state.Volume0&0x0f)
	}
	if p.state.Volume1 != p.previous.Volume1 {
		frame[0] |= volume1Bit
		nibbles = append(nibbles, p.state.Volume1&0x0f)
	}
	if p.state.Volume2 != p.previous.Volume2 {
		frame[0] |= volume2Bit
		nibbles = append(nibbles, p.state.Volume2&0x0f)
	}
	if p.state.Volume3 != p.previous.Volume3 {
		frame[0] |= volume3Bit
		nibbles = append(nibbles, p.state.Volume3&0x0f)
	}

	for i, n := range nibbles {
		if i%2 == 0 {
			frame = append(frame, n&0x0f)
		} else {
			frame[len(frame)-1] |= (n & 0x0f) << 4
		}
	}

	p.previous = p.state
	return frame
}

// poolMatch compares a candidate frame against the pool at offset for the
// candidate's own length, reading zeros past the current pool end, as the
// zero-filled fixed array this slice replaces did. Matching has always
// been done this way; changing it would move offsets in existing output.
func poolMatch(pool []byte, offset int, frame []byte) bool {
	for i, b := range frame {
		var p byte
		if offset+i < len(pool) {
			p = pool[offset+i]
		}
		if p != b {
			return false
		}
	}
	return true
}

// psgWriteFrame emits the pending delta as index words.
//
// The frame is deduplicated against the pool, then one index word carries
// (delay - 1, offset). Delays over eight frames chain delay-only words that
// point at the reserved zero-frame. A forced end-of-data flush can arrive
// with less than one frame of delay: an empty delta is dropped, a real one
// is held for a single frame, since the delay field has no zero.
func (e *Encoder) psgWriteFrame() {
	p := &e.psg

	frameDelay := int(p.samplesDelay / SamplesPerFrame)
	p.samplesDelay -= uint32(frameDelay) * SamplesPerFrame

	frame := e.generateFrame()
	if frameDelay == 0 {
		if frame[0] == 0 {
			return
		}
		frameDelay = 1
	}

	offset := -1
	for _, off := range p.frameOffsets {
		if poolMatch(p.frameData, off, frame) {
			offset = off
			break
		}
	}
	if offset < 0 {
		if len(p.frameData) >= FramePoolLimit {
			e.warnf("Warning: frame data too large to index.")
		}
		offset = len(p.frameData)
		p.frameOffsets = append(p.frameOffsets, offset)
		p.frameData = append(p.frameData, frame...)
	}

	if frameDelay <= 8 {
		e.psgPush(uint16(frameDelay-1)<<12|uint16(offset), frameDelay)
		return
	}

	// More than 8/60 s needs a chain of delay-only entries
	e.psgPush(0x7000|uint16(offset), 8)
	frameDelay -= 8
	for frameDelay > 0 {
		if frameDelay <= 8 {
			e.psgPush(uint16(frameDelay-1)<<12, frameDelay)
			frameDelay = 0
		} else {
			e.psgPush(0x7000, 8)
			frameDelay -= 8
		}
	}
}

func (e *Encoder) psgPush(word uint16, delay int) {
	p := &e.psg
	p.indexData = append(p.indexData, word)
	p.ticks = append(p.ticks, PsgTick{State: p.previous, Delay: delay})
}
