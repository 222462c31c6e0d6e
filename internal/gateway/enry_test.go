package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestEnryCounter_CountLines(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":                  "package main\n\nfunc main() {\n}\n",
		"tool.py":                  "import os\n\n\nprint(os.getcwd())\n",
		"node_modules/lib/x.js":    "var a = 1;\n",
		"vendor/dep/dep.go":        "package dep\n",
		".github/workflows/ci.yml": "on: push\n",
		"go.sum":                   "example.com v1.0.0 h1:abc\n",
		"data.json":                "{\"a\": 1}\n",
	})

	counter := NewEnryCounter(Exclusions{
		Dirs:  []string{"node_modules"},
		Exts:  []string{"json"},
		Files: []string{"go.sum"},
	}, nil, zap.NewNop())

	tally, err := counter.CountLines(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, tally["Go"])
	assert.Equal(t, 2, tally["Python"])
	assert.NotContains(t, tally, "JavaScript")
	assert.NotContains(t, tally, "JSON")
	assert.NotContains(t, tally, "YAML")
}

func TestEnryCounter_LanguageOverrides(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"BUILD.star":  "load(\"x\")\n\nrule()\n",
		"deploy.tmpl": "{{ .Name }}\n",
		"main.go":     "package main\n",
		"script.PY":   "print(1)\n",
	})

	overrides := NewLanguageOverrides(map[string]string{
		"star":  "Starlark",
		".tmpl": "Go Template",
		"py":    "Python 3",
	})
	tally, err := NewEnryCounter(Exclusions{}, overrides, zap.NewNop()).CountLines(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, tally["Starlark"])
	assert.Equal(t, 1, tally["Go Template"])
	assert.Equal(t, 1, tally["Python 3"], "extension matching ignores case")
	assert.Equal(t, 1, tally["Go"], "other files keep enry's language")
}

func TestLanguageOverrides_Lookup(t *testing.T) {
	overrides := NewLanguageOverrides(map[string]string{" .Star ": "Starlark", "": "Nothing", "tf": " "})

	lang, ok := overrides.Lookup("rules.star")
	assert.True(t, ok)
	assert.Equal(t, "Starlark", lang)

	_, ok = overrides.Lookup("main.tf")
	assert.False(t, ok, "blank languages are dropped")
	_, ok = overrides.Lookup("Makefile")
	assert.False(t, ok)
	assert.Len(t, overrides, 1)

	var none LanguageOverrides
	_, ok = none.Lookup("rules.star")
	assert.False(t, ok)
}

func TestEnryCounter_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": "package main\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEnryCounter(Exclusions{}, nil, zap.NewNop()).CountLines(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountNonBlank(t *testing.T) {
	assert.Equal(t, 0, countNonBlank(nil))
	assert.Equal(t, 2, countNonBlank([]byte("a\n \n\t\nb")))
}
