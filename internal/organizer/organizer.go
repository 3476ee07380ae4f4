// Package organizer sorts media files into per-day folders named after the
// capture date (YYYYMMDD), using EXIF timestamps when available.
package organizer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/catalog"
)

// Organizer moves or copies media files from a source directory into dated
// folders under a destination directory.
type Organizer struct {
	catalog   *catalog.Catalog // optional; when set, records every placement
	logger    *zap.Logger      // optional; when set, logs debug events
	copyFiles bool
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithLogger sets a logger for debug output (file placed, file skipped, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(o *Organizer) { o.logger = l }
}

// WithCatalog sets a catalog that records each placement and the run counters.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *Organizer) { o.catalog = c }
}

// WithCopy makes the organizer copy files instead of moving them.
func WithCopy(copy bool) Option {
	return func(o *Organizer) { o.copyFiles = copy }
}

// New creates an organizer.
func New(opts ...Option) *Organizer {
	o := &Organizer{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result summarizes one organize pass.
type Result struct {
	RunID     string
	Processed int
	Skipped   int
	Failed    int
}

// Organize walks srcDir recursively and places each regular file whose
// extension is in allowedExts (if non-empty; otherwise all files) into
// dstDir/YYYYMMDD/. Name collisions get a numeric suffix. Files already at
// their destination are skipped. Per-file failures are counted and logged,
// not fatal; the walk stops only on context cancellation.
func (o *Organizer) Organize(ctx context.Context, srcDir, dstDir string, allowedExts []string) (*Result, error) {
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	absDst, err := filepath.Abs(dstDir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absSrc)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absSrc)
	}

	result := &Result{}
	var run *catalog.Run
	if o.catalog != nil {
		run, err = o.catalog.StartRun(ctx, "organize")
		if err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		result.RunID = run.ID
	}

	err = filepath.WalkDir(absSrc, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			// Never descend into the destination when it lives under the source.
			if path == absDst {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		placed, err := o.placeFile(ctx, path, absDst, run)
		if err != nil {
			result.Failed++
			if o.logger != nil {
				o.logger.Warn("failed to organize file", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if placed {
			result.Processed++
		} else {
			result.Skipped++
		}
		return nil
	})

	if o.catalog != nil && run != nil {
		run.Processed = result.Processed
		run.Skipped = result.Skipped
		run.Failed = result.Failed
		if finishErr := o.catalog.FinishRun(context.WithoutCancel(ctx), run); finishErr != nil && err == nil {
			err = finishErr
		}
	}
	return result, err
}

func (o *Organizer) placeFile(ctx context.Context, path, dstRoot string, run *catalog.Run) (bool, error) {
	takenAt, err := MediaDate(path)
	if err != nil {
		return false, fmt.Errorf("media date: %w", err)
	}
	dayDir := filepath.Join(dstRoot, takenAt.Format("20060102"))
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return false, fmt.Errorf("create day directory: %w", err)
	}

	dest, err := availableName(dayDir, filepath.Base(path), path)
	if err != nil {
		return false, err
	}
	if dest == "" {
		// Already in place.
		return false, nil
	}

	if o.copyFiles {
		err = copyFile(path, dest)
	} else {
		err = moveFile(path, dest)
	}
	if err != nil {
		return false, err
	}
	if o.logger != nil {
		o.logger.Debug("organized file",
			zap.String("source", path),
			zap.String("dest", dest),
			zap.Time("taken_at", takenAt))
	}

	if o.catalog != nil && run != nil {
		err := o.catalog.RecordOrganized(ctx, &catalog.OrganizedFile{
			Source:  path,
			Dest:    dest,
			TakenAt: takenAt,
			RunID:   run.ID,
		})
		if err != nil {
			return true, err
		}
	}
	return true, nil
}

// availableName returns a destination path in dir for base that does not
// collide with an existing file, trying "name.ext", "name_1.ext", and so on.
// Returns "" when src already is the destination.
func availableName(dir, base, src string) (string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		candidate := filepath.Join(dir, name)
		if candidate == src {
			return "", nil
		}
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}

// moveFile renames src to dest, falling back to copy-and-remove when the
// rename crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
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
