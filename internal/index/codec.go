package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/omoide/internal/models"
)

// Persisted artifact names inside an index directory. The vector blob is a
// binary header plus raw float32 rows; the metadata list is JSON so it stays
// human-inspectable.
const (
	VectorsFile  = "vectors.bin"
	MetadataFile = "metadata.json"
)

const (
	blobMagic   = "OMVX"
	blobVersion = uint32(1)
)

// Save serializes the index into dir as two aligned artifacts: VectorsFile
// (dimension, count, then count×dimension little-endian float32) and
// MetadataFile (the ordered entry list). Both are written to temp files and
// renamed on success, so from the caller's view either both artifacts are
// updated or neither is. Save does not mutate the index.
func (idx *SimilarityIndex) Save(dir string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmpVec, err := idx.writeVectorBlob(dir)
	if err != nil {
		return err
	}
	tmpMeta, err := idx.writeMetadataList(dir)
	if err != nil {
		os.Remove(tmpVec)
		return err
	}
	if err := os.Rename(tmpVec, filepath.Join(dir, VectorsFile)); err != nil {
		os.Remove(tmpVec)
		os.Remove(tmpMeta)
		return fmt.Errorf("rename vector blob: %w", err)
	}
	if err := os.Rename(tmpMeta, filepath.Join(dir, MetadataFile)); err != nil {
		os.Remove(tmpMeta)
		return fmt.Errorf("rename metadata list: %w", err)
	}
	return nil
}

func (idx *SimilarityIndex) writeVectorBlob(dir string) (string, error) {
	f, err := os.CreateTemp(dir, VectorsFile+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp vector blob: %w", err)
	}
	name := f.Name()
	cleanup := func(err error) (string, error) {
		f.Close()
		os.Remove(name)
		return "", err
	}

	n := idx.vectors.Count()
	dim := idx.vectors.Dimensions()
	header := make([]byte, 4+4+4+4)
	copy(header[0:4], blobMagic)
	binary.LittleEndian.PutUint32(header[4:8], blobVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(dim))
	binary.LittleEndian.PutUint32(header[12:16], uint32(n))
	if _, err := f.Write(header); err != nil {
		return cleanup(fmt.Errorf("write blob header: %w", err))
	}

	row := make([]byte, dim*4)
	for i := 0; i < n; i++ {
		vec, ok := idx.vectors.At(i)
		if !ok {
			return cleanup(fmt.Errorf("vector %d missing during save", i))
		}
		for j, v := range vec {
			binary.LittleEndian.PutUint32(row[j*4:], math.Float32bits(v))
		}
		if _, err := f.Write(row); err != nil {
			return cleanup(fmt.Errorf("write vector %d: %w", i, err))
		}
	}
	if err := f.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync vector blob: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close vector blob: %w", err)
	}
	return name, nil
}

func (idx *SimilarityIndex) writeMetadataList(dir string) (string, error) {
	f, err := os.CreateTemp(dir, MetadataFile+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp metadata list: %w", err)
	}
	name := f.Name()

	entries := make([]models.MediaEntry, 0, idx.meta.Count())
	idx.meta.All()(func(_ int, e models.MediaEntry) bool {
		entries = append(entries, e)
		return true
	})
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("sync metadata list: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close metadata list: %w", err)
	}
	return name, nil
}

// Load reads the two artifacts from dir and returns the reconstructed index.
// A directory with neither artifact (or no directory at all) is the expected
// "no index yet" steady state and yields a fresh empty index with the
// dimension unset. Artifacts that disagree with each other (one missing,
// entry counts differing, a truncated blob, ordinals out of sequence) fail
// with ErrCorruptIndex rather than silently truncating or padding.
func Load(dir string, opts Options) (*SimilarityIndex, error) {
	vecPath := filepath.Join(dir, VectorsFile)
	metaPath := filepath.Join(dir, MetadataFile)

	_, vecErr := os.Stat(vecPath)
	_, metaErr := os.Stat(metaPath)
	if os.IsNotExist(vecErr) && os.IsNotExist(metaErr) {
		return New(opts), nil
	}
	if os.IsNotExist(vecErr) || os.IsNotExist(metaErr) {
		return nil, fmt.Errorf("%w: only one of %s and %s present in %s", ErrCorruptIndex, VectorsFile, MetadataFile, dir)
	}
	if vecErr != nil {
		return nil, fmt.Errorf("stat vector blob: %w", vecErr)
	}
	if metaErr != nil {
		return nil, fmt.Errorf("stat metadata list: %w", metaErr)
	}

	dim, vectors, err := readVectorBlob(vecPath)
	if err != nil {
		return nil, err
	}
	entries, err := readMetadataList(metaPath)
	if err != nil {
		return nil, err
	}
	if len(entries) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata entries", ErrCorruptIndex, len(vectors), len(entries))
	}

	idx := New(opts)
	for i, entry := range entries {
		if entry.Ordinal != i {
			return nil, fmt.Errorf("%w: entry %d has ordinal %d", ErrCorruptIndex, i, entry.Ordinal)
		}
		if !entry.FileType.Valid() {
			return nil, fmt.Errorf("%w: entry %d has file type %q", ErrCorruptIndex, i, entry.FileType)
		}
		if _, err := idx.vectors.Append(vectors[i]); err != nil {
			return nil, fmt.Errorf("%w: vector %d: %v", ErrCorruptIndex, i, err)
		}
		idx.meta.Append(entry)
	}
	if got := idx.vectors.Dimensions(); len(vectors) > 0 && got != dim {
		return nil, fmt.Errorf("%w: header dimension %d but vectors have %d", ErrCorruptIndex, dim, got)
	}
	return idx, nil
}

func readVectorBlob(path string) (dim int, vectors [][]float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open vector blob: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, nil, fmt.Errorf("%w: blob header: %v", ErrCorruptIndex, err)
	}
	if string(header[0:4]) != blobMagic {
		return 0, nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, header[0:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != blobVersion {
		return 0, nil, fmt.Errorf("%w: unsupported blob version %d", ErrCorruptIndex, v)
	}
	dim = int(binary.LittleEndian.Uint32(header[8:12]))
	n := int(binary.LittleEndian.Uint32(header[12:16]))
	if n > 0 && dim <= 0 {
		return 0, nil, fmt.Errorf("%w: %d vectors with dimension %d", ErrCorruptIndex, n, dim)
	}

	vectors = make([][]float32, 0, n)
	row := make([]byte, dim*4)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(f, row); err != nil {
			return 0, nil, fmt.Errorf("%w: vector %d: %v", ErrCorruptIndex, i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[j*4:]))
		}
		vectors = append(vectors, vec)
	}
	// Anything after the declared count means the header lies about N.
	var extra [1]byte
	if _, err := f.Read(extra[:]); err != io.EOF {
		return 0, nil, fmt.Errorf("%w: trailing data after %d vectors", ErrCorruptIndex, n)
	}
	return dim, vectors, nil
}

func readMetadataList(path string) ([]models.MediaEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata list: %w", err)
	}
	var entries []models.MediaEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse metadata: %v", ErrCorruptIndex, err)
	}
	return entries, nil
}
