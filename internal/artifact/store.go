// Package artifact reads and writes the JSON documents passed between
// pipeline stages: per-repository records, the unified statistics and history.
package artifact

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

//go:embed record.schema.json
var recordSchema []byte

// Store locates per-repository artifacts under a directory.
type Store struct {
	dir    string
	suffix string
	schema *gojsonschema.Schema
	logger *zap.Logger
}

// NewStore creates a Store for artifacts named <dir>/<artifact_name><suffix>.
func NewStore(dir, suffix string, logger *zap.Logger) (*Store, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile artifact schema: %w", err)
	}
	return &Store{
		dir:    dir,
		suffix: suffix,
		schema: schema,
		logger: logger,
	}, nil
}

// RecordPath returns where the artifact for artifactName lives.
func (s *Store) RecordPath(artifactName string) string {
	return filepath.Join(s.dir, artifactName+s.suffix)
}

// WriteRecord stores record as the artifact for artifactName.
func (s *Store) WriteRecord(artifactName string, record domain.RepositoryRecord) error {
	path := s.RecordPath(artifactName)
	if err := WriteJSON(path, record); err != nil {
		return err
	}
	s.logger.Info("wrote artifact", zap.String("repository", record.Name), zap.String("path", path))
	return nil
}

// ReadRecord loads the artifact for artifactName. A missing file wraps
// os.ErrNotExist; a document that fails the schema is an ErrConsistency.
func (s *Store) ReadRecord(artifactName string) (domain.RepositoryRecord, error) {
	path := s.RecordPath(artifactName)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RepositoryRecord{}, fmt.Errorf("failed to read artifact: %w", err)
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.RepositoryRecord{}, domain.NewError(domain.ErrConsistency, path, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			problems = append(problems, verr.Field()+": "+verr.Description())
		}
		return domain.RepositoryRecord{}, domain.NewError(domain.ErrConsistency, path,
			fmt.Errorf("artifact does not match schema: %s", strings.Join(problems, "; ")))
	}

	var record domain.RepositoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.RepositoryRecord{}, domain.NewError(domain.ErrConsistency, path, err)
	}
	return record, nil
}

// WriteUnified stores the unified statistics document at path.
func WriteUnified(path string, u domain.UnifiedStatistics) error {
	return WriteJSON(path, u)
}

// ReadUnified loads a unified statistics document. Derived fields in the file
// are ignored and recomputed from the counts.
func ReadUnified(path string) (domain.UnifiedStatistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.UnifiedStatistics{}, fmt.Errorf("failed to read unified statistics: %w", err)
	}
	var u domain.UnifiedStatistics
	if err := json.Unmarshal(data, &u); err != nil {
		return domain.UnifiedStatistics{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return u, nil
}

// ReadHistory loads history points from path. A missing file is an empty history.
func ReadHistory(path string) ([]domain.HistoryPoint, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var points []domain.HistoryPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return points, nil
}

// WriteHistory stores history points at path.
func WriteHistory(path string, points []domain.HistoryPoint) error {
	if points == nil {
		points = []domain.HistoryPoint{}
	}
	return WriteJSON(path, points)
}

// WriteJSON writes v as indented JSON. The file is written to a temporary
// sibling and renamed into place, so readers never see a partial document.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return WriteFile(path, append(data, '\n'))
}

// WriteFile atomically replaces path with data, creating parent directories.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
