package formats

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// VXM format errors.
var (
	ErrInvalidMagic       = errors.New("invalid VXM magic: expected 'VOXMODEL'")
	ErrUnsupportedVersion = errors.New("unsupported VXM version")
	ErrTruncated          = errors.New("truncated VXM data")
	ErrBlockSizeMismatch  = errors.New("VXM block size does not match this build")
	ErrVoxelSizeMismatch  = errors.New("VXM voxel size does not match the target model")
	ErrCorruptBlock       = errors.New("corrupt VXM block payload")
)

// VXMMagic opens every voxel model file.
var VXMMagic = [8]byte{'V', 'O', 'X', 'M', 'O', 'D', 'E', 'L'}

// VXM versions.
const (
	VXMVersionRLE     uint32 = 0 // per-block run-length encoding
	VXMVersionCurrent        = VXMVersionRLE
)

// zstdMagic is the frame magic of a zstd stream (little-endian 0xFD2FB528).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// VXMHeader is the fixed-size file header. All fields are little-endian.
type VXMHeader struct {
	Magic       [8]byte
	Version     uint32
	BlockDims   uint32
	BlockCount  uint32
	VoxelSize   [3]float32
	TotalBounds [6]float32 // min xyz, max xyz
}

// Bounds returns the total bounds stored in the header.
func (h VXMHeader) Bounds() math.Box3 {
	b := h.TotalBounds
	return math.Box3{
		Min: math.Vec3{X: b[0], Y: b[1], Z: b[2]},
		Max: math.Vec3{X: b[3], Y: b[4], Z: b[5]},
	}
}

// VoxelSizeVec returns the voxel size stored in the header.
func (h VXMHeader) VoxelSizeVec() math.Vec3 {
	return math.Vec3{X: h.VoxelSize[0], Y: h.VoxelSize[1], Z: h.VoxelSize[2]}
}

// vxmBlockHeader precedes each block's RLE payload.
type vxmBlockHeader struct {
	X, Y, Z  int32
	DataSize uint32
}

// BlockLoadedFunc is called after each block is decoded into the model.
type BlockLoadedFunc func(coord math.IVec3)

// WriteModel streams every allocated block of m to w. bounds is recorded in the
// header as the model's total working extent.
func WriteModel(w io.Writer, m *vox.Model, bounds math.Box3) error {
	vs := m.VoxelSize()
	hdr := VXMHeader{
		Magic:      VXMMagic,
		Version:    VXMVersionCurrent,
		BlockDims:  vox.BlockSize,
		BlockCount: uint32(m.Volume().BlockCount()),
		VoxelSize:  vs.Array(),
		TotalBounds: [6]float32{
			bounds.Min.X, bounds.Min.Y, bounds.Min.Z,
			bounds.Max.X, bounds.Max.Y, bounds.Max.Z,
		},
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	raw := make([]byte, 0, vox.BlockVoxels)
	var rle []byte
	var err error
	m.Volume().ForEachBlock(func(coord math.IVec3, b *vox.Block) bool {
		raw = b.AppendBytes(raw[:0])
		rle = EncodeRLE(rle[:0], raw)
		bh := vxmBlockHeader{X: coord.X, Y: coord.Y, Z: coord.Z, DataSize: uint32(len(rle))}
		if err = binary.Write(w, binary.LittleEndian, &bh); err != nil {
			err = fmt.Errorf("writing block %v header: %w", coord, err)
			return false
		}
		if _, err = w.Write(rle); err != nil {
			err = fmt.Errorf("writing block %v payload: %w", coord, err)
			return false
		}
		return true
	})
	return err
}

// ReadHeader reads and validates a VXM header.
func ReadHeader(r io.Reader) (VXMHeader, error) {
	var hdr VXMHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	if hdr.Magic != VXMMagic {
		return hdr, fmt.Errorf("%w: got %q", ErrInvalidMagic, hdr.Magic[:])
	}
	if hdr.Version != VXMVersionCurrent {
		return hdr, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	if hdr.BlockDims != vox.BlockSize {
		return hdr, fmt.Errorf("%w: file has %d, want %d", ErrBlockSizeMismatch, hdr.BlockDims, vox.BlockSize)
	}
	return hdr, nil
}

// LoadModel reads a VXM stream into m, allocating each stored block and
// calling onBlock (if non-nil) as each one is decoded. m must not be frozen
// unless every stored block is already allocated.
func LoadModel(r io.Reader, m *vox.Model, onBlock BlockLoadedFunc) (VXMHeader, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return hdr, err
	}
	if hdr.VoxelSizeVec() != m.VoxelSize() {
		return hdr, fmt.Errorf("%w: file %v, model %v", ErrVoxelSizeMismatch, hdr.VoxelSizeVec(), m.VoxelSize())
	}

	var payload []byte
	raw := make([]byte, vox.BlockVoxels)
	for i := uint32(0); i < hdr.BlockCount; i++ {
		var bh vxmBlockHeader
		if err := binary.Read(r, binary.LittleEndian, &bh); err != nil {
			return hdr, fmt.Errorf("%w: block %d header: %v", ErrTruncated, i, err)
		}
		// a block can never need more than two bytes per voxel
		if bh.DataSize%2 != 0 || bh.DataSize > 2*vox.BlockVoxels {
			return hdr, fmt.Errorf("%w: block %d payload size %d", ErrCorruptBlock, i, bh.DataSize)
		}
		if cap(payload) < int(bh.DataSize) {
			payload = make([]byte, bh.DataSize)
		}
		payload = payload[:bh.DataSize]
		if _, err := io.ReadFull(r, payload); err != nil {
			return hdr, fmt.Errorf("%w: block %d payload: %v", ErrTruncated, i, err)
		}
		if err := DecodeRLE(raw, payload); err != nil {
			return hdr, fmt.Errorf("block %d: %w", i, err)
		}

		coord := math.IVec3{X: bh.X, Y: bh.Y, Z: bh.Z}
		if err := m.Volume().GetOrCreate(coord).SetBytes(raw); err != nil {
			return hdr, err
		}
		if onBlock != nil {
			onBlock(coord)
		}
	}
	return hdr, nil
}

// EncodeRLE appends src to dst as (count, value) pairs with count in [1, 255].
func EncodeRLE(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		v := src[i]
		n := 1
		for i+n < len(src) && n < 255 && src[i+n] == v {
			n++
		}
		dst = append(dst, byte(n), v)
		i += n
	}
	return dst
}

// DecodeRLE expands (count, value) pairs into dst, which must be filled exactly.
func DecodeRLE(dst, src []byte) error {
	if len(src)%2 != 0 {
		return fmt.Errorf("%w: odd payload length %d", ErrCorruptBlock, len(src))
	}
	o := 0
	for i := 0; i < len(src); i += 2 {
		n := int(src[i])
		if n == 0 || o+n > len(dst) {
			return fmt.Errorf("%w: run of %d at offset %d", ErrCorruptBlock, n, o)
		}
		v := src[i+1]
		for j := range n {
			dst[o+j] = v
		}
		o += n
	}
	if o != len(dst) {
		return fmt.Errorf("%w: decoded %d of %d bytes", ErrCorruptBlock, o, len(dst))
	}
	return nil
}

// WriteModelFile writes m to path, optionally as a zstd stream. The file is
// written to a temporary name first and renamed into place.
func WriteModelFile(path string, m *vox.Model, bounds math.Box3, compress bool) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		w = enc
	}

	if err = WriteModel(w, m, bounds); err != nil {
		return err
	}
	if enc != nil {
		if err = enc.Close(); err != nil {
			return fmt.Errorf("finishing zstd stream: %w", err)
		}
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// LoadModelFile loads a VXM file into m. zstd-compressed files are detected
// by their frame magic.
func LoadModelFile(path string, m *vox.Model, onBlock BlockLoadedFunc) (VXMHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return VXMHeader{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, closeFn, err := openStream(f)
	if err != nil {
		return VXMHeader{}, fmt.Errorf("reading %s: %w", path, err)
	}
	defer closeFn()

	hdr, err := LoadModel(r, m, onBlock)
	if err != nil {
		return hdr, fmt.Errorf("loading %s: %w", path, err)
	}
	return hdr, nil
}

// ReadHeaderFile reads only the header of a VXM file.
func ReadHeaderFile(path string) (VXMHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return VXMHeader{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, closeFn, err := openStream(f)
	if err != nil {
		return VXMHeader{}, fmt.Errorf("reading %s: %w", path, err)
	}
	defer closeFn()
	return ReadHeader(r)
}

// openStream wraps f in a buffered reader, adding a zstd decoder when the
// stream starts with a zstd frame.
func openStream(f io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(f)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	if len(head) == len(zstdMagic) && string(head) == string(zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return dec, dec.Close, nil
	}
	return br, func() {}, nil
}
