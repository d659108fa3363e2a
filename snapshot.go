package corrfuse

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/blobstore"
	"github.com/hupe1980/corrfuse/codec"
	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
)

const (
	// snapshotMagic identifies corrfuse snapshot files (ASCII: "CFM1").
	snapshotMagic = 0x43464D31
	// snapshotVersion is the current snapshot format version (v1.0.0).
	snapshotVersion = 0x00010000
)

var (
	// ErrInvalidMagic is returned when a snapshot does not start with the
	// corrfuse magic number.
	ErrInvalidMagic = errors.New("invalid snapshot magic number")
	// ErrUnsupportedVersion is returned for snapshot versions this build
	// cannot read.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrUnknownCodec is returned when a snapshot names a codec this build
	// does not provide.
	ErrUnknownCodec = errors.New("unknown snapshot codec")
	// ErrUnknownCompression is returned for unrecognized compression types.
	ErrUnknownCompression = errors.New("unknown compression type")
)

// ErrChecksumMismatch is returned when snapshot integrity verification
// fails. CRC32 detects accidental corruption only; it is not tamper proof.
type ErrChecksumMismatch struct {
	Expected uint32
	Actual   uint32
}

func (e *ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("snapshot checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// snapshotMeta is the codec-encoded header section.
type snapshotMeta struct {
	Locations int            `json:"locations"`
	Subjects  int            `json:"subjects"`
	RBFWidth  float64        `json:"rbf_width"`
	CreatedAt time.Time      `json:"created_at"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Snapshot serializes the model into the corrfuse binary snapshot format:
// a fixed header naming the codec and compression, five length-prefixed
// sections (metadata, locations, numerator planes, denominator), and a
// trailing CRC32 over everything before it.
func (m *Model) Snapshot() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metaBytes, err := m.opts.codec.Marshal(snapshotMeta{
		Locations: m.locs.Len(),
		Subjects:  m.nSubs,
		RBFWidth:  m.rbfWidth,
		CreatedAt: m.created,
		Meta:      m.meta,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot metadata: %w", err)
	}

	n := m.locs.Len()
	locFloats := make([]float64, 0, n*3)
	for i := 0; i < n; i++ {
		p := m.locs.At(i)
		locFloats = append(locFloats, p.X, p.Y, p.Z)
	}
	numRe := make([]float64, n*n)
	numIm := make([]float64, n*n)
	den := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := m.acc.Num.At(i, j)
			numRe[i*n+j] = real(c)
			numIm[i*n+j] = imag(c)
			den[i*n+j] = m.acc.Den.At(i, j)
		}
	}

	codecName := m.opts.codec.Name()
	out := make([]byte, 0, 64+len(metaBytes)+8*4*n*n)
	out = binary.LittleEndian.AppendUint32(out, snapshotMagic)
	out = binary.LittleEndian.AppendUint32(out, snapshotVersion)
	out = append(out, byte(m.opts.compression))
	out = append(out, byte(len(codecName)))
	out = append(out, codecName...)

	for _, section := range [][]byte{
		metaBytes,
		floatsToBytes(locFloats),
		floatsToBytes(numRe),
		floatsToBytes(numIm),
		floatsToBytes(den),
	} {
		block, err := compressBlock(section, m.opts.compression)
		if err != nil {
			return nil, err
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(block)))
		out = append(out, block...)
	}

	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out)), nil
}

// Save serializes the model and writes it to the blob store under name.
func (m *Model) Save(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()
	data, err := m.Snapshot()
	if err == nil {
		err = store.Put(ctx, name, data)
	}
	m.metrics.RecordSnapshot(int64(len(data)), time.Since(start), err)
	m.logger.LogSnapshot(ctx, name, err)
	return err
}

// Load reads a snapshot from the blob store and reconstructs the model.
// Options configure the ambient stack (logger, metrics, codec for future
// saves); the model state itself comes from the snapshot.
func Load(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Model, error) {
	start := time.Now()
	data, err := blobstore.ReadAll(ctx, store, name)
	var m *Model
	if err == nil {
		m, err = FromSnapshot(data, optFns...)
	}
	if m != nil {
		m.metrics.RecordSnapshot(int64(len(data)), time.Since(start), err)
		m.logger.LogSnapshot(ctx, name, err)
	}
	return m, err
}

// FromSnapshot reconstructs a model from snapshot bytes.
func FromSnapshot(data []byte, optFns ...Option) (*Model, error) {
	if len(data) < 14 {
		return nil, ErrInvalidMagic
	}

	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	body := data[:len(data)-4]
	if actual := crc32.ChecksumIEEE(body); actual != stored {
		return nil, &ErrChecksumMismatch{Expected: stored, Actual: actual}
	}

	if binary.LittleEndian.Uint32(body[0:]) != snapshotMagic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(body[4:]) != snapshotVersion {
		return nil, ErrUnsupportedVersion
	}
	compression := CompressionType(body[8])
	nameLen := int(body[9])
	if len(body) < 10+nameLen {
		return nil, ErrInvalidMagic
	}
	codecName := string(body[10 : 10+nameLen])
	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	rest := body[10+nameLen:]
	sections := make([][]byte, 5)
	for i := range sections {
		if len(rest) < 4 {
			return nil, ErrInvalidMagic
		}
		blockLen := int(binary.LittleEndian.Uint32(rest))
		rest = rest[4:]
		if len(rest) < blockLen {
			return nil, ErrInvalidMagic
		}
		section, err := decompressBlock(rest[:blockLen], compression)
		if err != nil {
			return nil, err
		}
		sections[i] = section
		rest = rest[blockLen:]
	}

	var meta snapshotMeta
	if err := c.Unmarshal(sections[0], &meta); err != nil {
		return nil, fmt.Errorf("decode snapshot metadata: %w", err)
	}

	n := meta.Locations
	locFloats, err := bytesToFloats(sections[1], n*3)
	if err != nil {
		return nil, err
	}
	numRe, err := bytesToFloats(sections[2], n*n)
	if err != nil {
		return nil, err
	}
	numIm, err := bytesToFloats(sections[3], n*n)
	if err != nil {
		return nil, err
	}
	denFloats, err := bytesToFloats(sections[4], n*n)
	if err != nil {
		return nil, err
	}

	points := make([]locs.Point, n)
	for i := 0; i < n; i++ {
		points[i] = locs.Point{X: locFloats[i*3], Y: locFloats[i*3+1], Z: locFloats[i*3+2]}
	}
	set := locs.New(points)
	if set.Len() != n {
		return nil, fmt.Errorf("snapshot locations are not canonical: %d rows, %d unique", n, set.Len())
	}

	acc := &logspace.Accumulator{}
	if n > 0 {
		num := mat.NewCDense(n, n, nil)
		den := mat.NewDense(n, n, denFloats)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				num.Set(i, j, complex(numRe[i*n+j], numIm[i*n+j]))
			}
		}
		acc = &logspace.Accumulator{Num: num, Den: den}
	}

	o := applyOptions(optFns)
	o.rbfWidth = meta.RBFWidth
	o.meta = meta.Meta
	o.created = meta.CreatedAt
	o.compression = compression
	o.codec = c
	return newModel(set, acc, meta.Subjects, o), nil
}

func floatsToBytes(fs []float64) []byte {
	out := make([]byte, 8*len(fs))
	for i, f := range fs {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(f))
	}
	return out
}

func bytesToFloats(b []byte, want int) ([]float64, error) {
	if len(b) != 8*want {
		return nil, fmt.Errorf("snapshot section size mismatch: got %d bytes, want %d", len(b), 8*want)
	}
	if want == 0 {
		return nil, nil
	}
	out := make([]float64, want)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}
