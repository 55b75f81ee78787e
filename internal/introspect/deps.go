package introspect

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var moduleLineRe = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// readModulePath returns the Go module path declared in root/go.mod, or ""
// if there is none.
func readModulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	if match := moduleLineRe.FindSubmatch(data); match != nil {
		return string(match[1])
	}
	return ""
}

// resolveDependencies maps every file's imports onto concrete in-repo file
// paths. Imports that do not resolve (standard library, third-party modules)
// are dropped silently; they are expected and out of scope.
func resolveDependencies(files map[string]*FileMetrics, modulePath string) map[string][]string {
	// Index files by directory for Go package resolution.
	byDir := make(map[string][]string)
	for path := range files {
		dir := filepath.ToSlash(filepath.Dir(path))
		byDir[dir] = append(byDir[dir], path)
	}

	graph := make(map[string][]string, len(files))

	for path, m := range files {
		seen := make(map[string]bool)
		for _, imp := range m.Imports {
			for _, dep := range resolveImport(path, m.Language, imp, modulePath, files, byDir) {
				if dep != path && !seen[dep] {
					seen[dep] = true
					m.Dependencies = append(m.Dependencies, dep)
				}
			}
		}
		sort.Strings(m.Dependencies)
		graph[path] = m.Dependencies
	}

	return graph
}

func resolveImport(fromPath, language, imp, modulePath string, files map[string]*FileMetrics, byDir map[string][]string) []string {
	switch language {
	case "Go":
		return resolveGoImport(imp, modulePath, byDir)
	case "Python":
		return resolvePythonImport(fromPath, imp, files)
	case "JavaScript", "TypeScript":
		return resolveJSImport(fromPath, imp, files)
	default:
		return nil
	}
}

// resolveGoImport maps a module-internal import path to every Go file in the
// imported package's directory.
func resolveGoImport(imp, modulePath string, byDir map[string][]string) []string {
	if modulePath == "" || !strings.HasPrefix(imp, modulePath) {
		return nil
	}

	dir := strings.TrimPrefix(imp, modulePath)
	dir = strings.TrimPrefix(dir, "/")
	if dir == "" {
		dir = "."
	}

	var deps []string
	for _, p := range byDir[dir] {
		if strings.HasSuffix(p, ".go") {
			deps = append(deps, p)
		}
	}
	return deps
}

// resolvePythonImport handles both absolute ("pkg.mod") and relative
// (".mod", "..pkg.mod") import forms.
func resolvePythonImport(fromPath, imp string, files map[string]*FileMetrics) []string {
	var base string
	if strings.HasPrefix(imp, ".") {
		// Relative: each leading dot after the first walks one directory up.
		dots := 0
		for dots < len(imp) && imp[dots] == '.' {
			dots++
		}
		dir := filepath.ToSlash(filepath.Dir(fromPath))
		for i := 1; i < dots; i++ {
			dir = filepath.ToSlash(filepath.Dir(dir))
		}
		rest := strings.ReplaceAll(imp[dots:], ".", "/")
		base = joinSlash(dir, rest)
	} else {
		base = strings.ReplaceAll(imp, ".", "/")
	}

	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		candidate = cleanSlash(candidate)
		if _, ok := files[candidate]; ok {
			return []string{candidate}
		}
	}
	return nil
}

// resolveJSImport resolves relative imports against the importing file's
// directory, trying the usual extension and index-file candidates.
func resolveJSImport(fromPath, imp string, files map[string]*FileMetrics) []string {
	if !strings.HasPrefix(imp, ".") {
		return nil // bare specifier: third-party package
	}

	base := cleanSlash(joinSlash(filepath.ToSlash(filepath.Dir(fromPath)), imp))

	candidates := []string{
		base,
		base + ".ts", base + ".tsx",
		base + ".js", base + ".jsx", base + ".mjs",
		base + "/index.ts", base + "/index.tsx",
		base + "/index.js", base + "/index.jsx",
	}
	for _, candidate := range candidates {
		if _, ok := files[candidate]; ok {
			return []string{candidate}
		}
	}
	return nil
}

func joinSlash(dir, rest string) string {
	if dir == "." || dir == "" {
		return rest
	}
	if rest == "" {
		return dir
	}
	return dir + "/" + rest
}

func cleanSlash(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
