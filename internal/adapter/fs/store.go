// Package fs reads raw per-state exports from, and writes engineered datasets
// to, the local data directory tree (one directory per state code).
package fs

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/consolidate"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/region"
)

// Output file names written into each region directory.
const (
	DatasetFile  = "consolidado.csv"
	FeaturesFile = "consolidado_processado.csv"
)

// Store is rooted at the data directory.
type Store struct {
	baseDir  string
	focosDir string
	logger   *slog.Logger
}

// New creates a store. focosDir holds the hotspot exports and may not exist.
func New(baseDir, focosDir string, logger *slog.Logger) *Store {
	return &Store{baseDir: baseDir, focosDir: focosDir, logger: logger}
}

// RegionDir returns the directory of a region.
func (s *Store) RegionDir(r region.Region) string {
	return r.Dir(s.baseDir)
}

// ExtractArchives unpacks every .zip under the region directory. CSV entries
// are written flat into the region directory, other entries are ignored, and
// each archive is removed after extraction. Empty subdirectories left behind
// are removed. It returns the number of CSV files written.
func (s *Store) ExtractArchives(r region.Region) (int, error) {
	dir := s.RegionDir(r)
	var archives []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".zip") {
			archives = append(archives, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}

	written := 0
	for _, archive := range archives {
		n, err := extractCSVs(archive, dir)
		if err != nil {
			return written, err
		}
		if err := os.Remove(archive); err != nil {
			return written, fmt.Errorf("remove archive %s: %w", archive, err)
		}
		s.logger.Info("archive extracted", "region", r.Code, "archive", filepath.Base(archive), "csv_files", n)
		written += n
	}

	if err := removeEmptyDirs(dir); err != nil {
		return written, err
	}
	return written, nil
}

func extractCSVs(archive, dest string) (int, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("open archive %s: %w", archive, err)
	}
	defer zr.Close()

	n := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		// Entry paths are flattened, so nothing escapes dest.
		target := filepath.Join(dest, filepath.Base(filepath.FromSlash(f.Name)))
		if err := writeEntry(f, target); err != nil {
			return n, fmt.Errorf("extract %s from %s: %w", f.Name, archive, err)
		}
		n++
	}
	return n, nil
}

func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// removeEmptyDirs removes empty directories below root, deepest first.
func removeEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	slices.Reverse(dirs)
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			return fmt.Errorf("read %s: %w", d, err)
		}
		if len(entries) == 0 {
			if err := os.Remove(d); err != nil {
				return fmt.Errorf("remove %s: %w", d, err)
			}
		}
	}
	return nil
}

// ReferenceSources loads the region's top-level reference CSVs for the given
// years, sorted by file name.
func (s *Store) ReferenceSources(r region.Region, years []int) ([]consolidate.Source, error) {
	dir := s.RegionDir(r)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read region dir %s: %w", dir, err)
	}

	var sources []consolidate.Source
	for _, e := range entries {
		if e.IsDir() || !consolidate.MatchesReferenceYear(e.Name(), years) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		sources = append(sources, consolidate.Source{Name: e.Name(), Reader: bytes.NewReader(data)})
	}
	return sources, nil
}

// LoadHotspots reads every CSV in the hotspot directory into one table
// restricted to the Amazon biome. ok is false when the directory is missing.
func (s *Store) LoadHotspots() (t domain.Table, ok bool, err error) {
	if s.focosDir == "" {
		return domain.Table{}, false, nil
	}
	entries, err := os.ReadDir(s.focosDir)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Table{}, false, nil
	}
	if err != nil {
		return domain.Table{}, false, fmt.Errorf("read focos dir %s: %w", s.focosDir, err)
	}

	var all domain.Table
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		f, err := os.Open(filepath.Join(s.focosDir, e.Name()))
		if err != nil {
			return domain.Table{}, false, fmt.Errorf("open %s: %w", e.Name(), err)
		}
		part, err := consolidate.ReadCSV(f)
		_ = f.Close()
		if err != nil {
			return domain.Table{}, false, fmt.Errorf("load %s: %w", e.Name(), err)
		}
		for _, c := range part.Columns {
			all.AddColumn(c)
		}
		all.Rows = append(all.Rows, part.Rows...)
	}

	filtered := consolidate.FilterBiome(all, consolidate.AmazonBiome)
	s.logger.Info("hotspots loaded", "dir", s.focosDir, "rows", all.Len(), "amazon_rows", filtered.Len())
	return filtered, true, nil
}

// WriteDataset writes the engineered dataset into the region directory and
// returns its path.
func (s *Store) WriteDataset(r region.Region, t domain.Table) (string, error) {
	return s.write(r, DatasetFile, t)
}

// WriteFeatures writes the feature rows into the region directory and returns
// its path.
func (s *Store) WriteFeatures(r region.Region, t domain.Table) (string, error) {
	return s.write(r, FeaturesFile, t)
}

// write replaces the file through a temp file in the same directory.
func (s *Store) write(r region.Region, name string, t domain.Table) (string, error) {
	dir := s.RegionDir(r)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create region dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := consolidate.WriteCSV(tmp, t); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	s.logger.Debug("table written", "region", r.Code, "path", path, "rows", t.Len())
	return path, nil
}
