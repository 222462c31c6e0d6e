package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

// Icon identifiers as understood by skillicons.dev.
const (
	iconGo        = "go"
	iconNode      = "nodejs"
	iconPython    = "py"
	iconTS        = "ts"
	iconDocker    = "docker"
	iconActions   = "githubactions"
	iconTerraform = "terraform"
)

// goModuleIcons maps a module path prefix to an icon.
var goModuleIcons = []struct{ prefix, icon string }{
	{"github.com/jackc/pgx", "postgres"},
	{"github.com/lib/pq", "postgres"},
	{"github.com/go-sql-driver/mysql", "mysql"},
	{"go.mongodb.org/mongo-driver", "mongodb"},
	{"github.com/redis/go-redis", "redis"},
	{"github.com/go-redis/redis", "redis"},
	{"github.com/mattn/go-sqlite3", "sqlite"},
	{"modernc.org/sqlite", "sqlite"},
	{"github.com/prometheus/client_golang", "prometheus"},
	{"github.com/aws/aws-sdk-go", "aws"},
	{"cloud.google.com/go", "gcp"},
	{"k8s.io/client-go", "kubernetes"},
	{"github.com/IBM/sarama", "kafka"},
	{"github.com/segmentio/kafka-go", "kafka"},
	{"github.com/rabbitmq/amqp091-go", "rabbitmq"},
	{"github.com/99designs/gqlgen", "graphql"},
	{"github.com/graph-gophers/graphql-go", "graphql"},
	{"github.com/docker/docker", "docker"},
}

var npmIcons = map[string]string{
	"react":                 "react",
	"react-dom":             "react",
	"vue":                   "vue",
	"next":                  "nextjs",
	"nuxt":                  "nuxtjs",
	"@angular/core":         "angular",
	"svelte":                "svelte",
	"tailwindcss":           "tailwind",
	"express":               "express",
	"@nestjs/core":          "nestjs",
	"typescript":            iconTS,
	"jest":                  "jest",
	"vite":                  "vite",
	"webpack":               "webpack",
	"pg":                    "postgres",
	"mysql":                 "mysql",
	"mysql2":                "mysql",
	"mongoose":              "mongodb",
	"mongodb":               "mongodb",
	"redis":                 "redis",
	"ioredis":               "redis",
	"sqlite3":               "sqlite",
	"better-sqlite3":        "sqlite",
	"prisma":                "prisma",
	"@prisma/client":        "prisma",
	"@supabase/supabase-js": "supabase",
	"firebase":              "firebase",
	"graphql":               "graphql",
	"sass":                  "sass",
	"bootstrap":             "bootstrap",
	"electron":              "electron",
	"prom-client":           "prometheus",
}

var pythonIcons = map[string]string{
	"django":            "django",
	"flask":             "flask",
	"fastapi":           "fastapi",
	"psycopg":           "postgres",
	"psycopg2":          "postgres",
	"psycopg2-binary":   "postgres",
	"asyncpg":           "postgres",
	"pymysql":           "mysql",
	"mysqlclient":       "mysql",
	"pymongo":           "mongodb",
	"redis":             "redis",
	"torch":             "pytorch",
	"tensorflow":        "tensorflow",
	"scikit-learn":      "sklearn",
	"prometheus-client": "prometheus",
	"boto3":             "aws",
	"kafka-python":      "kafka",
	"confluent-kafka":   "kafka",
	"pika":              "rabbitmq",
}

// pythonRequirement captures the distribution name at the start of a PEP 508
// requirement.
var pythonRequirement = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)

// pyproject is the subset of pyproject.toml that names dependencies.
type pyproject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
			Group        map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ManifestDetector finds the technologies a working copy uses by reading its
// dependency manifests and a few marker files.
type ManifestDetector struct {
	dirs   map[string]struct{}
	logger *zap.Logger
}

// NewManifestDetector creates a new ManifestDetector. Directories named in
// exclusions are not searched.
func NewManifestDetector(exclusions Exclusions, logger *zap.Logger) *ManifestDetector {
	return &ManifestDetector{dirs: toSet(exclusions.Dirs), logger: logger}
}

// DetectTechnologies returns the sorted icon identifiers found under root.
// Manifests that cannot be parsed are skipped.
func (m *ManifestDetector) DetectTechnologies(ctx context.Context, root string) ([]string, error) {
	found := map[string]struct{}{}
	add := func(icons ...string) {
		for _, icon := range icons {
			found[icon] = struct{}{}
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if name == ".github" {
				if info, statErr := os.Stat(filepath.Join(path, "workflows")); statErr == nil && info.IsDir() {
					add(iconActions)
				}
				return filepath.SkipDir
			}
			if _, skip := m.dirs[name]; skip || strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		icons, parseErr := m.inspect(path, name)
		if parseErr != nil {
			m.logger.Debug("skipping unreadable manifest", zap.String("path", path), zap.Error(parseErr))
			return nil
		}
		add(icons...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	techs := make([]string, 0, len(found))
	for icon := range found {
		techs = append(techs, icon)
	}
	techs = domain.MergeTechnologies(techs)
	m.logger.Debug("detected technologies", zap.Strings("technologies", techs))
	return techs, nil
}

// inspect returns the icons implied by a single file.
func (m *ManifestDetector) inspect(path, name string) ([]string, error) {
	switch {
	case name == "go.mod":
		return readFile(path, goModIcons)
	case name == "package.json":
		return readFile(path, packageJSONIcons)
	case name == "requirements.txt":
		return readFile(path, requirementsIcons)
	case name == "pyproject.toml":
		return readFile(path, pyprojectIcons)
	case name == "Dockerfile", name == "docker-compose.yml", name == "docker-compose.yaml", name == "compose.yaml":
		return []string{iconDocker}, nil
	case name == "tsconfig.json":
		return []string{iconTS}, nil
	case strings.HasSuffix(name, ".tf"):
		return []string{iconTerraform}, nil
	default:
		return nil, nil
	}
}

func readFile(path string, parse func(path string, data []byte) ([]string, error)) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(path, data)
}

func goModIcons(path string, data []byte) ([]string, error) {
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return nil, err
	}
	icons := []string{iconGo}
	for _, req := range f.Require {
		for _, m := range goModuleIcons {
			if req.Mod.Path == m.prefix || strings.HasPrefix(req.Mod.Path, m.prefix+"/") {
				icons = append(icons, m.icon)
			}
		}
	}
	return icons, nil
}

func packageJSONIcons(_ string, data []byte) ([]string, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	icons := []string{iconNode}
	for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
		for name := range deps {
			if icon, ok := npmIcons[strings.ToLower(name)]; ok {
				icons = append(icons, icon)
			}
		}
	}
	return icons, nil
}

func requirementsIcons(_ string, data []byte) ([]string, error) {
	icons := []string{iconPython}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if icon, ok := pythonIcon(line); ok {
			icons = append(icons, icon)
		}
	}
	return icons, scanner.Err()
}

func pyprojectIcons(_ string, data []byte) ([]string, error) {
	var p pyproject
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	icons := []string{iconPython}
	add := func(requirement string) {
		if icon, ok := pythonIcon(requirement); ok {
			icons = append(icons, icon)
		}
	}
	for _, dep := range p.Project.Dependencies {
		add(dep)
	}
	for name := range p.Tool.Poetry.Dependencies {
		add(name)
	}
	for _, group := range p.Tool.Poetry.Group {
		for name := range group.Dependencies {
			add(name)
		}
	}
	return icons, nil
}

// pythonIcon maps a requirement line to an icon. Names are compared after PEP
// 503 normalization.
func pythonIcon(requirement string) (string, bool) {
	match := pythonRequirement.FindStringSubmatch(requirement)
	if match == nil {
		return "", false
	}
	name := strings.ToLower(match[1])
	name = strings.NewReplacer("_", "-", ".", "-").Replace(name)
	icon, ok := pythonIcons[name]
	return icon, ok
}
