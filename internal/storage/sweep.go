package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// sweepMinAge protects records that were written moments ago but have not
// been registered in the window yet (async flush in flight).
const sweepMinAge = time.Minute

// Sweeper periodically reconciles the archive directory with the retention
// window, deleting record files that eviction failed to remove (or that a
// previous process instance left behind).
type Sweeper struct {
	archive *Archive
	window  *Window
	sched   gocron.Scheduler
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(root string, window *Window, interval time.Duration) (*Sweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create sweep scheduler: %w", err)
	}

	s := &Sweeper{
		archive: NewArchive(root),
		window:  window,
		sched:   sched,
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.runSweep),
		gocron.WithName("orphan-sweep"),
	); err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("create sweep job: %w", err)
	}

	return s, nil
}

// Start begins periodic sweeping.
func (s *Sweeper) Start() {
	s.sched.Start()
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *Sweeper) Stop() error {
	return s.sched.Shutdown()
}

func (s *Sweeper) runSweep() {
	deleted, err := s.Sweep()
	if err != nil {
		log.Warn("orphan sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		log.Info("orphan sweep completed", "deleted", deleted)
	}
}

// Sweep deletes orphaned record files older than the oldest retained
// record. It does nothing while the window is empty, since without a
// retained baseline every file would look like an orphan.
func (s *Sweeper) Sweep() (deleted int, err error) {
	records := s.window.Records()
	if len(records) == 0 {
		return 0, nil
	}

	retained := make(map[string]struct{}, len(records))
	for _, r := range records {
		retained[r.RelPath] = struct{}{}
	}
	oldest := records[0].Second

	cutoff := time.Now().Add(-sweepMinAge)

	err = s.archive.walkRecords(func(rel string, d fs.DirEntry) error {
		if _, ok := retained[rel]; ok {
			return nil
		}

		sec, err := RecordTime(rel)
		if err != nil || !sec.Before(oldest) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}

		path := filepath.Join(s.archive.root, rel)
		if err := os.Remove(path); err != nil {
			log.Warn("orphan delete failed", "path", path, "error", err)
			return nil
		}
		deleted++
		return nil
	})
	return deleted, err
}
