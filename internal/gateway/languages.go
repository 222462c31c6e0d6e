package gateway

import (
	"path/filepath"
	"sort"
	"strings"
)

// LanguageOverrides maps a lower-case file extension, without the leading
// dot, to the language its files are counted as. It extends the counters'
// vocabulary for extensions they do not know or classify differently.
type LanguageOverrides map[string]string

// NewLanguageOverrides normalizes the extension keys of m.
func NewLanguageOverrides(m map[string]string) LanguageOverrides {
	o := make(LanguageOverrides, len(m))
	for ext, lang := range m {
		ext = NormalizeExt(ext)
		lang = strings.TrimSpace(lang)
		if ext == "" || lang == "" {
			continue
		}
		o[ext] = lang
	}
	return o
}

// NormalizeExt lower-cases ext and strips surrounding space and the leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Lookup returns the language forced for filename's extension.
func (o LanguageOverrides) Lookup(filename string) (string, bool) {
	if len(o) == 0 {
		return "", false
	}
	ext := NormalizeExt(filepath.Ext(filename))
	if ext == "" {
		return "", false
	}
	lang, ok := o[ext]
	return lang, ok
}

// clocArgs renders the overrides as cloc --force-lang flags, ordered by extension.
func (o LanguageOverrides) clocArgs() []string {
	exts := make([]string, 0, len(o))
	for ext := range o {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	args := make([]string, 0, len(exts))
	for _, ext := range exts {
		args = append(args, "--force-lang="+o[ext]+","+ext)
	}
	return args
}
