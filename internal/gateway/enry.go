package gateway

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
	"go.uber.org/zap"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// maxEnryFileSize skips files that are almost certainly generated.
const maxEnryFileSize = 2 << 20

// EnryCounter counts lines per language in-process. It stands in for cloc on
// machines where cloc is not installed.
type EnryCounter struct {
	dirs      map[string]struct{}
	exts      []string
	files     map[string]struct{}
	overrides LanguageOverrides
	logger    *zap.Logger
}

// NewEnryCounter creates a new EnryCounter.
func NewEnryCounter(exclusions Exclusions, overrides LanguageOverrides, logger *zap.Logger) *EnryCounter {
	exts := make([]string, 0, len(exclusions.Exts))
	for _, ext := range exclusions.Exts {
		exts = append(exts, "."+strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return &EnryCounter{
		dirs:      toSet(exclusions.Dirs),
		exts:      exts,
		files:     toSet(exclusions.Files),
		overrides: overrides,
		logger:    logger,
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// CountLines walks the tree at root and returns non-blank lines per language.
func (e *EnryCounter) CountLines(ctx context.Context, root string) (domain.LanguageTally, error) {
	tally := domain.LanguageTally{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if _, skip := e.dirs[d.Name()]; skip || enry.IsVendor(rel+"/") || enry.IsDotFile(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || e.excluded(d.Name(), rel) {
			return nil
		}

		lang, lines, err := e.countFile(path, d)
		if err != nil {
			e.logger.Debug("skipping unreadable file", zap.String("path", rel), zap.Error(err))
			return nil
		}
		if lang != "" && lines > 0 {
			tally[lang] += lines
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return tally, nil
}

func (e *EnryCounter) excluded(name, rel string) bool {
	if _, skip := e.files[name]; skip {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range e.exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return enry.IsVendor(rel) || enry.IsDotFile(rel) || enry.IsDocumentation(rel)
}

func (e *EnryCounter) countFile(path string, d fs.DirEntry) (string, int, error) {
	info, err := d.Info()
	if err != nil {
		return "", 0, err
	}
	if info.Size() == 0 || info.Size() > maxEnryFileSize {
		return "", 0, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	if enry.IsBinary(content) {
		return "", 0, nil
	}

	name := filepath.Base(path)
	lang, ok := e.overrides.Lookup(name)
	if !ok {
		lang = enry.GetLanguage(name, content)
	}
	if lang == "" {
		return "", 0, nil
	}
	return lang, countNonBlank(content), nil
}

func countNonBlank(content []byte) int {
	n := 0
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxEnryFileSize)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	return n
}
