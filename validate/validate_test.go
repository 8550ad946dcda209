package validate

import (
	"testing"

	"vgmc/compress"
	"vgmc/encode"
	"vgmc/parse"
)

func testFile(cmds []byte, loopAt int) parse.File {
	data := make([]byte, 0x40)
	data = append(data, cmds...)
	file := parse.File{Data: data, DataStart: 0x40}
	if loopAt >= 0 {
		file.LoopOffset = 0x40 + loopAt
	}
	return file
}

func TestDecodeIndexes(t *testing.T) {
	frameData := []byte{0x00, 0x01, 0x55, 0x01}

	t.Run("tone frame", func(t *testing.T) {
		ticks, err := DecodeIndexes(frameData, []uint16{0x0001})
		if err != nil {
			t.Fatalf("DecodeIndexes: %v", err)
		}
		if len(ticks) != 1 {
			t.Fatalf("ticks = %d, want 1", len(ticks))
		}
		if ticks[0].State.Tone0 != 0x155 {
			t.Errorf("Tone0 = %03x, want 155", ticks[0].State.Tone0)
		}
		if ticks[0].Delay != 1 {
			t.Errorf("Delay = %d, want 1", ticks[0].Delay)
		}
	})

	t.Run("delay only entry keeps state", func(t *testing.T) {
		ticks, err := DecodeIndexes(frameData, []uint16{0x0001, 0x7000})
		if err != nil {
			t.Fatalf("DecodeIndexes: %v", err)
		}
		if ticks[1].State != ticks[0].State {
			t.Errorf("state changed across delay-only entry")
		}
		if ticks[1].Delay != 8 {
			t.Errorf("Delay = %d, want 8", ticks[1].Delay)
		}
	})

	t.Run("reference word rejected", func(t *testing.T) {
		if _, err := DecodeIndexes(frameData, []uint16{0x8000}); err == nil {
			t.Error("expected error for reference in literal stream")
		}
	})

	t.Run("offset out of range", func(t *testing.T) {
		if _, err := DecodeIndexes(frameData, []uint16{0x0009}); err == nil {
			t.Error("expected error for offset past pool")
		}
	})
}

func TestExpand(t *testing.T) {
	t.Run("literals pass through", func(t *testing.T) {
		out, err := Expand([]uint16{1, 2, 3})
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if len(out) != 3 {
			t.Fatalf("expanded = %04x, want 3 literals", out)
		}
	})

	t.Run("reference copies segment", func(t *testing.T) {
		out, err := Expand([]uint16{1, 2, 0x8000})
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		want := []uint16{1, 2, 1, 2}
		if len(out) != len(want) {
			t.Fatalf("expanded = %04x, want %04x", out, want)
		}
		for i := range want {
			if out[i] != want[i] {
				t.Fatalf("expanded = %04x, want %04x", out, want)
			}
		}
	})

	t.Run("reference to reference rejected", func(t *testing.T) {
		if _, err := Expand([]uint16{1, 0x8000, 0x8001}); err == nil {
			t.Error("expected error for reference targeting a reference")
		}
	})

	t.Run("overrun rejected", func(t *testing.T) {
		if _, err := Expand([]uint16{0x9000}); err == nil {
			t.Error("expected error for reference past stream end")
		}
	})
}

func TestPlayFromAnchors(t *testing.T) {
	// [1 2 3 1 2 3 4] with the loop on the second repeated word
	uncompressed := []uint16{1, 2, 3, 1, 2, 3, 4}
	r := compress.Compress(uncompressed, 4)

	out, err := PlayFromAnchors(r.Data, r.Loop)
	if err != nil {
		t.Fatalf("PlayFromAnchors: %v", err)
	}

	want := uncompressed[4:]
	if len(out) != len(want) {
		t.Fatalf("looped = %04x, want %04x", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("looped = %04x, want %04x", out, want)
		}
	}
}

func TestDecodeFm(t *testing.T) {
	t.Run("fused delay", func(t *testing.T) {
		ticks, err := DecodeFm([]uint16{0x3045})
		if err != nil {
			t.Fatalf("DecodeFm: %v", err)
		}
		if len(ticks) != 1 || ticks[0].Delay != 1 {
			t.Fatalf("ticks = %+v, want one tick of delay 1", ticks)
		}
		if len(ticks[0].Writes) != 1 || ticks[0].Writes[0] != (encode.FmWrite{Addr: 0x30, Data: 0x45}) {
			t.Errorf("writes = %+v, want one write 30=45", ticks[0].Writes)
		}
	})

	t.Run("delay word", func(t *testing.T) {
		ticks, err := DecodeFm([]uint16{0xf045, 0x8003})
		if err != nil {
			t.Fatalf("DecodeFm: %v", err)
		}
		if len(ticks) != 1 || ticks[0].Delay != 3 {
			t.Fatalf("ticks = %+v, want one tick of delay 3", ticks)
		}
	})

	t.Run("dangling continuation rejected", func(t *testing.T) {
		if _, err := DecodeFm([]uint16{0xf045}); err == nil {
			t.Error("expected error for stream ending mid-tick")
		}
	})
}

func TestStreams(t *testing.T) {
	cmds := []byte{
		0x50, 0x85, 0x62,
		0x50, 0x87, 0x62,
		0x50, 0x85, 0x62, // repeats the first frame content
		0x51, 0x30, 0x45, 0x62,
		0x66,
	}

	t.Run("conversion verifies", func(t *testing.T) {
		r := encode.Encode(testFile(cmds, 3), false)
		c := compress.Compress(r.IndexData, r.LoopIndex)
		if err := Streams(r, c); err != nil {
			t.Errorf("Streams: %v", err)
		}
	})

	t.Run("corrupt compressed word detected", func(t *testing.T) {
		r := encode.Encode(testFile(cmds, 3), false)
		c := compress.Compress(r.IndexData, r.LoopIndex)
		c.Data[0] ^= 0x0001
		if err := Streams(r, c); err == nil {
			t.Error("expected error for corrupted stream")
		}
	})

	t.Run("corrupt frame pool detected", func(t *testing.T) {
		r := encode.Encode(testFile(cmds, 3), false)
		c := compress.Compress(r.IndexData, r.LoopIndex)
		r.FrameData[2] ^= 0xff
		if err := Streams(r, c); err == nil {
			t.Error("expected error for corrupted frame data")
		}
	})

	t.Run("long silence delays total", func(t *testing.T) {
		r := encode.Encode(testFile([]byte{0x50, 0x85, 0x61, 0x22, 0x56, 0x66}, -1), false)
		c := compress.Compress(r.IndexData, r.LoopIndex)
		if err := Streams(r, c); err != nil {
			t.Errorf("Streams: %v", err)
		}
	})

	t.Run("fm only", func(t *testing.T) {
		r := encode.Encode(testFile([]byte{0x51, 0x30, 0x45, 0x62, 0x66}, -1), false)
		c := compress.Compress(r.IndexData, r.LoopIndex)
		if err := Streams(r, c); err != nil {
			t.Errorf("Streams: %v", err)
		}
	})
}
