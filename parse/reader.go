package parse

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// SourceSizeMax bounds the uncompressed input. Everything downstream is
// sized on the assumption that the source fits well below this.
const SourceSizeMax = 512 * 1024

var (
	vgmMagic  = []byte{'V', 'g', 'm', ' '}
	gzipMagic = []byte{0x1f, 0x8b, 0x08}
)

// File is a VGM image loaded into memory, with the header fields the
// converter cares about already decoded to absolute offsets.
type File struct {
	Data       []byte
	Version    uint32
	ClockHz    uint32
	Rate       uint32
	DataStart  int
	LoopOffset int // absolute offset of the loop point, 0 when the file has none
}

// Load reads a .vgm or .vgz file. Gzip input is detected by signature and
// decompressed transparently before the VGM magic is checked.
func Load(path string) (File, error) {
	data, err := readData(path)
	if err != nil {
		return File{}, err
	}

	if len(data) < 0x40 || !bytes.Equal(data[0:4], vgmMagic) {
		return File{}, fmt.Errorf("file is not a valid VGM")
	}

	file := File{
		Data:    data,
		Version: binary.LittleEndian.Uint32(data[0x08:0x0c]),
		ClockHz: binary.LittleEndian.Uint32(data[0x0c:0x10]),
		Rate:    binary.LittleEndian.Uint32(data[0x24:0x28]),
	}

	// Offsets in the VGM header are relative to their own position in the file
	dataOffset := binary.LittleEndian.Uint32(data[0x34:0x38])
	file.DataStart = 0x40
	if dataOffset != 0 {
		file.DataStart = 0x34 + int(dataOffset)
	}
	if file.DataStart >= len(data) {
		return File{}, fmt.Errorf("VGM data offset out of range")
	}

	loopOffset := binary.LittleEndian.Uint32(data[0x1c:0x20])
	if loopOffset != 0 {
		file.LoopOffset = 0x1c + int(loopOffset)
	}

	return file, nil
}

func readData(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s", path)
	}
	defer f.Close()

	magic := make([]byte, 3)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("unable to read %s", path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("unable to read %s", path)
	}

	var r io.Reader = f
	if bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("unable to open vgz %s", path)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(io.LimitReader(r, SourceSizeMax+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s", path)
	}
	if len(data) > SourceSizeMax {
		return nil, fmt.Errorf("source file (uncompressed) larger than 512 KiB")
	}

	return data, nil
}
