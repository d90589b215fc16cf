package persist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/benchfang/pkg/safeconv"
)

// DatasetExtension is the file extension of binary dataset files.
const DatasetExtension = ".bfd"

// datasetMagic identifies a benchfang binary dataset file.
const datasetMagic = "bfd1"

// datasetVersion is the binary format version written by this package.
const datasetVersion = 1

// Block payload encodings inside a dataset file.
const (
	// blockRaw stores the payload bytes as-is. Used when lz4 cannot shrink
	// the payload.
	blockRaw byte = 0

	// blockLZ4 stores the payload as a single lz4 block.
	blockLZ4 byte = 1
)

// Size guards keeping corrupt headers from driving unbounded allocations.
const (
	// maxLabelBytes bounds the benchmark name and unit strings.
	maxLabelBytes = 1 << 12

	// maxDatasetBins bounds the number of bins in a dataset.
	maxDatasetBins = 1 << 24

	// maxBlockBytes bounds a single value or count block.
	maxBlockBytes = 1 << 30
)

// wordByteSize is the encoded width of one value or count.
const wordByteSize = 8

// Binary dataset errors.
var (
	// ErrBadMagic reports a file that is not a benchfang dataset.
	ErrBadMagic = errors.New("persist: not a benchfang dataset file")

	// ErrBadVersion reports a dataset written by an unsupported format version.
	ErrBadVersion = errors.New("persist: unsupported dataset format version")

	// ErrCorruptDataset reports a dataset file with an inconsistent layout.
	ErrCorruptDataset = errors.New("persist: corrupt dataset file")
)

// blockHeader frames one payload block inside a dataset file.
type blockHeader struct {
	Encoding   byte
	PayloadLen uint32
	StoredLen  uint32
}

// WriteDataset writes ds to w in the binary dataset format: a fixed header
// (magic, version, run ID, creation time), the benchmark and unit labels,
// the bin count, then two framed blocks holding the delta-encoded values
// and the raw counts.
func WriteDataset(w io.Writer, ds *Dataset) error {
	validateErr := ds.Validate()
	if validateErr != nil {
		return validateErr
	}

	_, magicErr := io.WriteString(w, datasetMagic)
	if magicErr != nil {
		return fmt.Errorf("write dataset magic: %w", magicErr)
	}

	versionErr := binary.Write(w, binary.LittleEndian, byte(datasetVersion))
	if versionErr != nil {
		return fmt.Errorf("write dataset version: %w", versionErr)
	}

	_, idErr := w.Write(ds.ID[:])
	if idErr != nil {
		return fmt.Errorf("write dataset id: %w", idErr)
	}

	stampErr := binary.Write(w, binary.LittleEndian, ds.CreatedAt.UnixNano())
	if stampErr != nil {
		return fmt.Errorf("write dataset timestamp: %w", stampErr)
	}

	labelErr := writeLabel(w, ds.Benchmark)
	if labelErr != nil {
		return fmt.Errorf("write benchmark label: %w", labelErr)
	}

	labelErr = writeLabel(w, ds.Unit)
	if labelErr != nil {
		return fmt.Errorf("write unit label: %w", labelErr)
	}

	binsErr := binary.Write(w, binary.LittleEndian, safeconv.MustIntToUint32(len(ds.Values)))
	if binsErr != nil {
		return fmt.Errorf("write bin count: %w", binsErr)
	}

	deltas := make([]int64, len(ds.Values))
	copy(deltas, ds.Values)
	deltaEncodeInt64(deltas)

	valueBytes, encodeErr := wordsToBytes(deltas)
	if encodeErr != nil {
		return fmt.Errorf("encode values: %w", encodeErr)
	}

	blockErr := writeBlock(w, valueBytes)
	if blockErr != nil {
		return fmt.Errorf("write value block: %w", blockErr)
	}

	countBytes, encodeErr := wordsToBytes(ds.Counts)
	if encodeErr != nil {
		return fmt.Errorf("encode counts: %w", encodeErr)
	}

	blockErr = writeBlock(w, countBytes)
	if blockErr != nil {
		return fmt.Errorf("write count block: %w", blockErr)
	}

	return nil
}

// ReadDataset reads a binary dataset written by WriteDataset.
func ReadDataset(r io.Reader) (*Dataset, error) {
	magic := make([]byte, len(datasetMagic))

	_, magicErr := io.ReadFull(r, magic)
	if magicErr != nil {
		return nil, fmt.Errorf("read dataset magic: %w", magicErr)
	}

	if string(magic) != datasetMagic {
		return nil, ErrBadMagic
	}

	var version byte

	versionErr := binary.Read(r, binary.LittleEndian, &version)
	if versionErr != nil {
		return nil, fmt.Errorf("read dataset version: %w", versionErr)
	}

	if version != datasetVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	ds := &Dataset{}

	_, idErr := io.ReadFull(r, ds.ID[:])
	if idErr != nil {
		return nil, fmt.Errorf("read dataset id: %w", idErr)
	}

	var stamp int64

	stampErr := binary.Read(r, binary.LittleEndian, &stamp)
	if stampErr != nil {
		return nil, fmt.Errorf("read dataset timestamp: %w", stampErr)
	}

	ds.CreatedAt = time.Unix(0, stamp).UTC()

	benchmark, benchErr := readLabel(r)
	if benchErr != nil {
		return nil, fmt.Errorf("read benchmark label: %w", benchErr)
	}

	ds.Benchmark = benchmark

	unit, unitErr := readLabel(r)
	if unitErr != nil {
		return nil, fmt.Errorf("read unit label: %w", unitErr)
	}

	ds.Unit = unit

	var bins uint32

	binsErr := binary.Read(r, binary.LittleEndian, &bins)
	if binsErr != nil {
		return nil, fmt.Errorf("read bin count: %w", binsErr)
	}

	if bins == 0 || bins > maxDatasetBins {
		return nil, ErrCorruptDataset
	}

	numBins := safeconv.MustUintToInt(uint(bins))

	valueBytes, valueErr := readBlock(r)
	if valueErr != nil {
		return nil, fmt.Errorf("read value block: %w", valueErr)
	}

	if len(valueBytes) != numBins*wordByteSize {
		return nil, ErrCorruptDataset
	}

	ds.Values = make([]int64, numBins)

	decodeErr := bytesToWords(valueBytes, ds.Values)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode values: %w", decodeErr)
	}

	deltaDecodeInt64(ds.Values)

	countBytes, countErr := readBlock(r)
	if countErr != nil {
		return nil, fmt.Errorf("read count block: %w", countErr)
	}

	if len(countBytes) != numBins*wordByteSize {
		return nil, ErrCorruptDataset
	}

	ds.Counts = make([]uint64, numBins)

	decodeErr = bytesToWords(countBytes, ds.Counts)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode counts: %w", decodeErr)
	}

	validateErr := ds.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return ds, nil
}

// SaveDataset writes ds to dir under basename plus the dataset extension,
// creating the directory when missing.
func SaveDataset(dir, basename string, ds *Dataset) error {
	return writeArtifact(dir, basename+DatasetExtension, func(w io.Writer) error {
		return WriteDataset(w, ds)
	})
}

// LoadDataset reads a binary dataset from path.
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer file.Close()

	ds, err := ReadDataset(file)
	if err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}

	return ds, nil
}

// writeBlock writes payload as one framed block: the header, then the stored
// bytes. Payloads that lz4 cannot shrink are stored raw.
func writeBlock(w io.Writer, payload []byte) error {
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))

	written, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	encoding := blockLZ4
	stored := compressed[:written]

	if written == 0 || written >= len(payload) {
		encoding = blockRaw
		stored = payload
	}

	header := blockHeader{
		Encoding:   encoding,
		PayloadLen: safeconv.MustIntToUint32(len(payload)),
		StoredLen:  safeconv.MustIntToUint32(len(stored)),
	}

	headerErr := binary.Write(w, binary.LittleEndian, header)
	if headerErr != nil {
		return fmt.Errorf("write block header: %w", headerErr)
	}

	_, dataErr := w.Write(stored)
	if dataErr != nil {
		return fmt.Errorf("write block data: %w", dataErr)
	}

	return nil
}

// readBlock reads one block written by writeBlock and returns the payload.
func readBlock(r io.Reader) ([]byte, error) {
	var header blockHeader

	headerErr := binary.Read(r, binary.LittleEndian, &header)
	if headerErr != nil {
		return nil, fmt.Errorf("read block header: %w", headerErr)
	}

	if header.PayloadLen > maxBlockBytes || header.StoredLen > maxBlockBytes {
		return nil, ErrCorruptDataset
	}

	stored := make([]byte, header.StoredLen)

	_, dataErr := io.ReadFull(r, stored)
	if dataErr != nil {
		return nil, fmt.Errorf("read block data: %w", dataErr)
	}

	switch header.Encoding {
	case blockRaw:
		if header.StoredLen != header.PayloadLen {
			return nil, ErrCorruptDataset
		}

		return stored, nil

	case blockLZ4:
		payload := make([]byte, header.PayloadLen)

		n, err := lz4.UncompressBlock(stored, payload)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}

		if n != len(payload) {
			return nil, ErrCorruptDataset
		}

		return payload, nil

	default:
		return nil, ErrCorruptDataset
	}
}

// wordsToBytes renders a fixed-width integer slice as little-endian bytes.
func wordsToBytes[T int64 | uint64](words []T) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(len(words) * wordByteSize)

	err := binary.Write(buf, binary.LittleEndian, words)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// bytesToWords parses little-endian bytes back into a fixed-width integer
// slice. out must be sized to consume raw exactly.
func bytesToWords[T int64 | uint64](raw []byte, out []T) error {
	return binary.Read(bytes.NewReader(raw), binary.LittleEndian, out)
}

// deltaEncodeInt64 replaces each element with the difference from its
// predecessor, in place. Sorted sequences become small repetitive values
// that compress better with lz4. Wrapping subtraction keeps the transform
// exact across the full int64 range.
func deltaEncodeInt64(data []int64) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// deltaDecodeInt64 performs a prefix-sum to restore original values from
// deltas produced by deltaEncodeInt64. The operation is performed in place.
func deltaDecodeInt64(data []int64) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}

// writeLabel writes a length-prefixed string.
func writeLabel(w io.Writer, label string) error {
	lengthErr := binary.Write(w, binary.LittleEndian, safeconv.MustIntToUint32(len(label)))
	if lengthErr != nil {
		return lengthErr
	}

	_, err := io.WriteString(w, label)

	return err
}

// readLabel reads a length-prefixed string written by writeLabel.
func readLabel(r io.Reader) (string, error) {
	var length uint32

	lengthErr := binary.Read(r, binary.LittleEndian, &length)
	if lengthErr != nil {
		return "", lengthErr
	}

	if length > maxLabelBytes {
		return "", ErrCorruptDataset
	}

	buf := make([]byte, length)

	_, err := io.ReadFull(r, buf)
	if err != nil {
		return "", err
	}

	return string(buf), nil
}
