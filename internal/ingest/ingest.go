// Package ingest walks media directories, embeds new or changed files, and
// adds them to the similarity index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/catalog"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/index"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/pkg/utils"
)

// Ingester embeds media files and feeds them to the index.
type Ingester struct {
	index    *index.SimilarityIndex
	embedder embedding.Embedder
	catalog  *catalog.Catalog // optional; enables incremental skip and run records
	logger   *zap.Logger      // optional; when set, logs per-file events

	imageExts []string
	videoExts []string
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for per-file debug output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// WithCatalog sets a catalog used to skip unchanged files and record runs.
func WithCatalog(c *catalog.Catalog) Option {
	return func(in *Ingester) { in.catalog = c }
}

// New creates an ingester. imageExts and videoExts decide which files are
// picked up and which embedder entry point handles them.
func New(idx *index.SimilarityIndex, embedder embedding.Embedder, imageExts, videoExts []string, opts ...Option) *Ingester {
	in := &Ingester{
		index:     idx,
		embedder:  embedder,
		imageExts: imageExts,
		videoExts: videoExts,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Result summarizes one ingest pass.
type Result struct {
	RunID   string
	Indexed int
	Skipped int
	Failed  int
}

// Run walks each directory recursively and indexes every media file that is
// new or changed since the last run. Per-file failures and dimension
// mismatches are counted and logged, not fatal. The index is saved to
// indexDir at the end of the pass when indexDir is non-empty.
func (in *Ingester) Run(ctx context.Context, dirs []string, indexDir string) (*Result, error) {
	result := &Result{}
	var run *catalog.Run
	if in.catalog != nil {
		var err error
		run, err = in.catalog.StartRun(ctx, "index")
		if err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		result.RunID = run.ID
	}

	var walkErr error
	for _, dir := range dirs {
		if walkErr = in.walkDir(ctx, dir, run, result); walkErr != nil {
			break
		}
	}

	if walkErr == nil && indexDir != "" && result.Indexed > 0 {
		if err := in.index.Save(indexDir); err != nil {
			walkErr = fmt.Errorf("save index: %w", err)
		}
	}

	if in.catalog != nil && run != nil {
		run.Processed = result.Indexed
		run.Skipped = result.Skipped
		run.Failed = result.Failed
		if err := in.catalog.FinishRun(context.WithoutCancel(ctx), run); err != nil && walkErr == nil {
			walkErr = err
		}
	}
	return result, walkErr
}

func (in *Ingester) walkDir(ctx context.Context, dir string, run *catalog.Run, result *Result) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absDir)
	}

	return filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fileType, ok := in.classify(path)
		if !ok {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		in.ingestFile(ctx, path, fileType, finfo, run, result)
		return ctx.Err()
	})
}

// ingestFile embeds and indexes a single file, updating the counters. Errors
// other than context cancellation are absorbed into the failed count so one
// bad file does not end the pass.
func (in *Ingester) ingestFile(ctx context.Context, path string, fileType models.FileType, info os.FileInfo, run *catalog.Run, result *Result) {
	if in.catalog != nil {
		current, err := in.catalog.IsCurrent(ctx, path, info.ModTime().UnixNano(), info.Size())
		if err == nil && current {
			result.Skipped++
			if in.logger != nil {
				in.logger.Debug("skipping unchanged file", zap.String("path", path))
			}
			return
		}
	}

	var emb []float32
	var err error
	switch fileType {
	case models.FileTypeVideo:
		emb, err = in.embedder.EmbedVideo(ctx, path)
	default:
		emb, err = in.embedder.EmbedImage(ctx, path)
	}
	if err != nil {
		result.Failed++
		if in.logger != nil {
			in.logger.Warn("failed to embed file", zap.String("path", path), zap.Error(err))
		}
		return
	}

	if utils.IsZeroVector(emb) && in.logger != nil {
		// Zero embedding means the file could not be decoded; it is indexed
		// anyway so stats and the catalog stay complete, but it will never
		// rank above the similarity floor.
		in.logger.Warn("file produced an empty embedding", zap.String("path", path))
	}

	ordinal, err := in.index.Add(ctx, emb, path, fileType)
	if err != nil {
		result.Failed++
		if errors.Is(err, index.ErrDimensionMismatch) {
			if in.logger != nil {
				in.logger.Warn("embedding dimension mismatch, file skipped",
					zap.String("path", path),
					zap.Int("index_dimensions", in.index.Dimensions()),
					zap.Int("embedding_dimensions", len(emb)))
			}
			return
		}
		if in.logger != nil {
			in.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
		}
		return
	}

	if in.catalog != nil {
		runID := ""
		if run != nil {
			runID = run.ID
		}
		recordErr := in.catalog.RecordIndexed(ctx, &catalog.IndexedFile{
			Path:     path,
			MtimeNs:  info.ModTime().UnixNano(),
			Size:     info.Size(),
			FileType: fileType,
			Ordinal:  ordinal,
			RunID:    runID,
		})
		if recordErr != nil && in.logger != nil {
			in.logger.Warn("failed to record indexed file", zap.String("path", path), zap.Error(recordErr))
		}
	}

	result.Indexed++
	if in.logger != nil {
		in.logger.Debug("indexed file",
			zap.String("path", path),
			zap.String("file_type", string(fileType)),
			zap.Int("ordinal", ordinal))
	}
}

// IngestFile indexes a single file outside a directory walk, for watcher
// callbacks. Unchanged files are skipped.
func (in *Ingester) IngestFile(ctx context.Context, path string) (*Result, error) {
	fileType, ok := in.classify(path)
	if !ok {
		return &Result{}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	result := &Result{}
	in.ingestFile(ctx, path, fileType, info, nil, result)
	return result, ctx.Err()
}

// classify maps a path to its media type by extension.
func (in *Ingester) classify(path string) (models.FileType, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if extensionAllowed(ext, in.imageExts) {
		return models.FileTypeImage, true
	}
	if extensionAllowed(ext, in.videoExts) {
		return models.FileTypeVideo, true
	}
	return "", false
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
