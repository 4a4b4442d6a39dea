package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepStale removes scratch files older than maxAge. Files of in-flight
// extractions are younger than any sane maxAge, so only leftovers of crashed
// processes are affected.
func (e *Extractor) SweepStale(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(e.scratchDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	removed := 0
	var errs []error

	for _, entry := range entries {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		if !isScratchFile(entry) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			if !errors.Is(infoErr, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("stat scratch file: %w", infoErr))
			}
			continue
		}

		if now.Sub(info.ModTime()) < maxAge {
			continue
		}

		path := filepath.Join(e.scratchDir, entry.Name())
		if rmErr := os.Remove(path); rmErr != nil {
			if !errors.Is(rmErr, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove scratch file: %w", rmErr))
			}
			continue
		}

		e.log.InfoContext(ctx, "Stale scratch file is removed",
			"scratchPath", path,
			"ageSeconds", now.Sub(info.ModTime()).Seconds())

		removed++
	}

	return removed, errors.Join(errs...)
}

func isScratchFile(entry os.DirEntry) bool {
	name := entry.Name()

	return entry.Type().IsRegular() &&
		strings.HasPrefix(name, scratchFilePrefix) &&
		strings.HasSuffix(name, scratchFileSuffix)
}
