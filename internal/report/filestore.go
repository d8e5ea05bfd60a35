// Package report writes one JSON report file per account.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

// Slug turns an account name into a file-safe name: lower case, runs of
// anything other than letters and digits collapsed to "-".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "account"
	}
	return slug
}

// FileStore keeps the latest report of every account under one directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the report directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the report file for an account.
func (s *FileStore) Path(accountName string) string {
	return filepath.Join(s.dir, Slug(accountName)+".json")
}

// SaveReport writes the report atomically, replacing any previous one.
func (s *FileStore) SaveReport(ctx context.Context, r *models.AccountReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+Slug(r.AccountName)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting report permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(r.AccountName)); err != nil {
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}

// Load reads the report of one account.
func (s *FileStore) Load(accountName string) (*models.AccountReport, error) {
	return s.read(s.Path(accountName))
}

// List reads every report in the directory, sorted by account name.
func (s *FileStore) List() ([]*models.AccountReport, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	reports := make([]*models.AccountReport, 0, len(paths))
	for _, p := range paths {
		r, err := s.read(p)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].AccountName < reports[j].AccountName })
	return reports, nil
}

func (s *FileStore) read(path string) (*models.AccountReport, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperrors.NotFoundf("report %s not found", filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	var r models.AccountReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}
