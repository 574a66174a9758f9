// Package importer loads workout exports into history.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/claude/gymcoach/internal/models"
)

// Store is the history the importer writes to. *storage.DB implements it.
type Store interface {
	HasWorkout(ctx context.Context, userID, date, theme string) (bool, error)
	InsertWorkout(ctx context.Context, userID string, w models.Workout) (models.WorkoutRecord, error)
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	WorkoutsInserted   int
	WorkoutsDuplicated int
	WorkoutsRejected   int
}

// Importer reads workout export files from a directory tree and inserts them
// into one user's history.
type Importer struct {
	db     Store
	log    *slog.Logger
	userID string
	dryRun bool
	stats  Stats

	// date and theme of workouts inserted (or counted, in a dry run) this run
	seen map[[2]string]bool
}

// New creates a new Importer.
func New(db Store, log *slog.Logger, userID string, dryRun bool) *Importer {
	return &Importer{db: db, log: log, userID: userID, dryRun: dryRun, seen: make(map[[2]string]bool)}
}

// Import processes every export file under dir in lexical order. Workouts
// already in history with the same date and theme are skipped.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isExportFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return &imp.stats, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, f); err != nil {
			return &imp.stats, err
		}
	}
	return &imp.stats, nil
}

// importFile imports one export. Unreadable files are counted and skipped;
// only store errors abort the run.
func (imp *Importer) importFile(ctx context.Context, path string) error {
	data, err := ReadExport(path)
	if err != nil {
		imp.log.Warn("read failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}

	workouts, rejected, err := DecodeExport(data)
	if err != nil {
		imp.log.Warn("parse failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	for _, r := range rejected {
		imp.log.Warn("skipping malformed workout", "file", path, "error", r)
	}
	imp.stats.WorkoutsRejected += len(rejected)

	if len(workouts) == 0 {
		imp.stats.FilesSkipped++
		return nil
	}
	imp.stats.FilesProcessed++

	for _, w := range workouts {
		key := [2]string{w.Date, w.Theme}
		if imp.seen[key] {
			imp.stats.WorkoutsDuplicated++
			continue
		}
		exists, err := imp.db.HasWorkout(ctx, imp.userID, w.Date, w.Theme)
		if err != nil {
			return fmt.Errorf("checking %s %q: %w", w.Date, w.Theme, err)
		}
		if exists {
			imp.stats.WorkoutsDuplicated++
			continue
		}
		if !imp.dryRun {
			if _, err := imp.db.InsertWorkout(ctx, imp.userID, w); err != nil {
				return fmt.Errorf("inserting %s %q from %s: %w", w.Date, w.Theme, filepath.Base(path), err)
			}
		}
		imp.seen[key] = true
		imp.stats.WorkoutsInserted++
	}
	return nil
}

// DecodeExport decodes a file holding one workout object or an array of them.
// Array elements that fail validation are returned as rejected errors rather
// than failing the whole file.
func DecodeExport(data []byte) (workouts []models.Workout, rejected []error, err error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, nil, fmt.Errorf("decoding workout array: %w", err)
		}
		for i, item := range items {
			w, err := models.DecodeWorkout(item)
			if err != nil {
				rejected = append(rejected, fmt.Errorf("item %d: %w", i, err))
				continue
			}
			workouts = append(workouts, w)
		}
		return workouts, rejected, nil
	}

	w, err := models.DecodeWorkout(data)
	if err != nil {
		return nil, nil, err
	}
	return []models.Workout{w}, nil, nil
}
