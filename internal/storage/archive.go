package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/tremor/internal/segment"
)

// loadRecordLimit caps the points returned by LoadRecord.
const loadRecordLimit = 1000

// Archive provides read-only views over the on-disk record hierarchy for
// the external command/status layer.
type Archive struct {
	root string
}

// NewArchive returns an archive browser rooted at the readings directory.
func NewArchive(root string) *Archive {
	return &Archive{root: root}
}

// FileEntry describes one record file in the folder structure.
type FileEntry struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// FileStats summarizes the archive for status reporting.
type FileStats struct {
	TotalFiles int    `json:"total_files"`
	TotalBytes int64  `json:"total_bytes"`
	Latest     string `json:"latest_file"`
	Oldest     string `json:"oldest_file"`
}

// Point is one decoded sample with its absolute timestamp restored.
type Point struct {
	Timestamp    time.Time `json:"timestamp"`
	Acceleration float64   `json:"acceleration"`
}

// ListFiles returns the relative paths of all record files, most recent
// first. The aggregate file and in-flight temp files are skipped.
func (a *Archive) ListFiles() ([]string, error) {
	var files []string

	err := a.walkRecords(func(rel string, _ fs.DirEntry) error {
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Hierarchical paths sort chronologically; reverse for most recent first.
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// FileStats returns file-count and size statistics over the archive.
func (a *Archive) FileStats() (FileStats, error) {
	var st FileStats
	var paths []string

	err := a.walkRecords(func(rel string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil
		}
		st.TotalFiles++
		st.TotalBytes += info.Size()
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return FileStats{}, err
	}

	if len(paths) > 0 {
		sort.Strings(paths)
		st.Oldest = paths[0]
		st.Latest = paths[len(paths)-1]
	}
	return st, nil
}

// FolderStructure returns the nested year→month→week→day→files mapping
// used by the calendar view.
func (a *Archive) FolderStructure() (map[string]map[string]map[string]map[string][]FileEntry, error) {
	structure := make(map[string]map[string]map[string]map[string][]FileEntry)

	err := a.walkRecords(func(rel string, d fs.DirEntry) error {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 5 { // year/month/week/day/file
			return nil
		}
		year, month, week, day := parts[0], parts[1], parts[2], parts[3]

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if structure[year] == nil {
			structure[year] = make(map[string]map[string]map[string][]FileEntry)
		}
		if structure[year][month] == nil {
			structure[year][month] = make(map[string]map[string][]FileEntry)
		}
		if structure[year][month][week] == nil {
			structure[year][month][week] = make(map[string][]FileEntry)
		}

		structure[year][month][week][day] = append(structure[year][month][week][day], FileEntry{
			Filename: d.Name(),
			Path:     rel,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return structure, nil
}

// LoadRecord parses a record file back into absolute-timestamped points by
// recombining each row's offset with the base time derived from the file's
// position in the hierarchy. At most the last 1000 points are returned.
func (a *Archive) LoadRecord(relPath string) ([]Point, error) {
	base, err := RecordTime(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(a.root, relPath))
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read header: %w", err)
	}

	var points []Point
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) < 2 {
			continue
		}

		offset, err := segment.ParseOffset(row[0])
		if err != nil {
			continue
		}
		mag, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}

		points = append(points, Point{
			Timestamp:    base.Add(offset),
			Acceleration: mag,
		})
	}

	if len(points) > loadRecordLimit {
		points = points[len(points)-loadRecordLimit:]
	}
	return points, nil
}

// RecordTime derives the second boundary from a record's relative path
// (year/month/week/day/HHMMSS.csv, with an optional _N collision suffix).
func RecordTime(relPath string) (time.Time, error) {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) < 5 {
		return time.Time{}, fmt.Errorf("record path %q too shallow", relPath)
	}

	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("record path %q not date-shaped", relPath)
	}

	name := strings.TrimSuffix(parts[len(parts)-1], RecordExt)
	if i := strings.IndexByte(name, '_'); i >= 0 {
		name = name[:i]
	}
	if len(name) != 6 {
		return time.Time{}, fmt.Errorf("record name %q not HHMMSS", name)
	}
	hour, err1 := strconv.Atoi(name[0:2])
	minute, err2 := strconv.Atoi(name[2:4])
	second, err3 := strconv.Atoi(name[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("record name %q not HHMMSS", name)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local), nil
}

// walkRecords visits every record file under the root, skipping the
// aggregate file and temp files. A missing root yields no visits.
func (a *Archive) walkRecords(fn func(rel string, d fs.DirEntry) error) error {
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == AggregateName || !strings.HasSuffix(name, RecordExt) {
			return nil
		}

		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), d)
	})
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
