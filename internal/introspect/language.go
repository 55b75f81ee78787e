package introspect

import (
	"path/filepath"
	"strings"
)

// extensionToLanguage maps file extensions to language names. Only languages
// the parser understands at least heuristically are listed; anything else is
// skipped by the scanner.
var extensionToLanguage = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".pyi":  "Python",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".mts":  "TypeScript",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".mjs":  "JavaScript",
	".cjs":  "JavaScript",
	".rb":   "Ruby",
	".rs":   "Rust",
	".java": "Java",
}

// DetectLanguage returns the programming language for a given filename based
// on its extension. Returns "" for unrecognized files.
func DetectLanguage(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" {
		return ""
	}
	return extensionToLanguage[ext]
}

// isTestFile returns true if the filename or path looks like a test file.
func isTestFile(name, relPath string) bool {
	lower := strings.ToLower(name)

	if strings.HasSuffix(lower, "_test.go") {
		return true
	}
	if strings.HasPrefix(lower, "test_") || strings.HasSuffix(lower, "_test.py") {
		return true
	}
	for _, suffix := range []string{".test.js", ".test.ts", ".test.tsx", ".spec.js", ".spec.ts", ".spec.tsx"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	relSlash := filepath.ToSlash(strings.ToLower(relPath))
	if strings.Contains(relSlash, "/test/") || strings.Contains(relSlash, "/tests/") ||
		strings.HasPrefix(relSlash, "test/") || strings.HasPrefix(relSlash, "tests/") {
		return true
	}

	return false
}
