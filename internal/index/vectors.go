package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// Vector file layout (little-endian):
//
//	magic   [4]byte "VXI\x00"
//	version uint32
//	dim     uint32
//	count   uint64
//	data    count*dim float32
//	crc     uint32 (IEEE, over everything above)
const (
	vectorFileVersion = 1
	headerSize        = 4 + 4 + 4 + 8
)

var vectorMagic = [4]byte{'V', 'X', 'I', 0}

// WriteVectors serializes the index to w.
func WriteVectors(w io.Writer, f *Flat) error {
	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))

	var hdr [headerSize]byte
	copy(hdr[0:4], vectorMagic[:])
	binary.LittleEndian.PutUint32(hdr[4:8], vectorFileVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(f.dim))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(f.Count()))
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("write vector header: %w", err)
	}

	var buf [4]byte
	for _, x := range f.data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(x))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("write vectors: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush vectors: %w", err)
	}

	binary.LittleEndian.PutUint32(buf[:], crc.Sum32())
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write vector checksum: %w", err)
	}
	return nil
}

// ReadVectors deserializes an index written by WriteVectors.
// Structural problems are reported as CorruptIndexError.
func ReadVectors(r io.Reader) (*Flat, error) {
	crc := crc32.NewIEEE()
	br := io.TeeReader(bufio.NewReader(r), crc)

	var hdr [headerSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, domain.NewCorruptIndex("vector file header: %v", err)
	}
	if [4]byte(hdr[0:4]) != vectorMagic {
		return nil, domain.NewCorruptIndex("vector file has bad magic %q", hdr[0:4])
	}
	if v := binary.LittleEndian.Uint32(hdr[4:8]); v != vectorFileVersion {
		return nil, domain.NewCorruptIndex("unsupported vector file version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(hdr[8:12]))
	count := binary.LittleEndian.Uint64(hdr[12:20])
	if dim <= 0 {
		return nil, domain.NewCorruptIndex("vector file dimension %d", dim)
	}
	if count > math.MaxInt32/uint64(dim) {
		return nil, domain.NewCorruptIndex("vector file count %d too large", count)
	}

	n := int(count) * dim
	raw := make([]byte, n*4)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, domain.NewCorruptIndex("vector data truncated: %v", err)
	}
	want := crc.Sum32()

	var tail [4]byte
	if _, err := io.ReadFull(br, tail[:]); err != nil {
		return nil, domain.NewCorruptIndex("vector checksum missing: %v", err)
	}
	if got := binary.LittleEndian.Uint32(tail[:]); got != want {
		return nil, domain.NewCorruptIndex("vector checksum mismatch")
	}
	var extra [1]byte
	if _, err := br.Read(extra[:]); !errors.Is(err, io.EOF) {
		return nil, domain.NewCorruptIndex("trailing bytes after vector checksum")
	}

	data := make([]float32, n)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return &Flat{dim: dim, data: data}, nil
}
