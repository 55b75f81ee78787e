package introspect

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

// parseFile extracts declarations, imports, and a complexity score from one
// source file. Go files get a real AST with branch-count complexity; other
// languages fall back to line-based heuristics where complexity is the count
// of functions + classes + imports.
func parseFile(relPath, language string, content []byte) *FileMetrics {
	m := &FileMetrics{
		Path:     relPath,
		Language: language,
		Lines:    countLines(content),
	}

	switch language {
	case "Go":
		parseGo(m, content)
	default:
		parseGeneric(m, language, content)
	}

	return m
}

// MeasureFile computes metrics for a single file outside a full scan, e.g.
// to compare a file before and after a modification.
func MeasureFile(relPath string, content []byte) *FileMetrics {
	return parseFile(relPath, DetectLanguage(relPath), content)
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}

// parseGo fills metrics from a Go AST. On a syntax error the generic parser
// is used instead so that broken files still get flagged.
func parseGo(m *FileMetrics, content []byte) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, m.Path, content, parser.ParseComments)
	if err != nil {
		parseGeneric(m, "Go", content)
		return
	}

	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err == nil {
			m.Imports = append(m.Imports, path)
		}
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			m.Functions = append(m.Functions, d.Name.Name)
			if d.Doc != nil {
				m.DocComments++
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				m.Types = append(m.Types, ts.Name.Name)
				if d.Doc != nil || ts.Doc != nil {
					m.DocComments++
				}
			}
		}
	}

	// Complexity: one per function plus one per branch point.
	complexity := len(m.Functions)
	ast.Inspect(file, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.CaseClause,
			*ast.CommClause, *ast.SelectStmt:
			complexity++
		case *ast.BinaryExpr:
			if v.Op == token.LAND || v.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	m.Complexity = complexity
}

var (
	pyImportRe   = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	pyFromRe     = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import`)
	pyDefRe      = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`)
	pyClassRe    = regexp.MustCompile(`^\s*class\s+(\w+)`)
	jsImportRe   = regexp.MustCompile(`^\s*import\s+.*?from\s+['"]([^'"]+)['"]`)
	jsBareImpRe  = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	jsRequireRe  = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsFunctionRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`)
	jsConstFnRe  = regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s*)?\(`)
	jsClassRe    = regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)`)
	genericDefRe = regexp.MustCompile(`^\s*(?:pub\s+)?(?:fn|def|func|function)\s+(\w+)`)
	docCommentRe = regexp.MustCompile(`^\s*(?:///|/\*\*|"""|''')`)
)

// parseGeneric extracts imports and declarations with line-based regexes.
func parseGeneric(m *FileMetrics, language string, content []byte) {
	lines := strings.Split(string(content), "\n")

	for _, line := range lines {
		switch language {
		case "Python":
			if match := pyFromRe.FindStringSubmatch(line); match != nil {
				m.Imports = append(m.Imports, match[1])
			} else if match := pyImportRe.FindStringSubmatch(line); match != nil {
				m.Imports = append(m.Imports, match[1])
			}
			if match := pyDefRe.FindStringSubmatch(line); match != nil {
				m.Functions = append(m.Functions, match[1])
			}
			if match := pyClassRe.FindStringSubmatch(line); match != nil {
				m.Types = append(m.Types, match[1])
			}
		case "JavaScript", "TypeScript":
			if match := jsImportRe.FindStringSubmatch(line); match != nil {
				m.Imports = append(m.Imports, match[1])
			} else if match := jsBareImpRe.FindStringSubmatch(line); match != nil {
				m.Imports = append(m.Imports, match[1])
			}
			for _, match := range jsRequireRe.FindAllStringSubmatch(line, -1) {
				m.Imports = append(m.Imports, match[1])
			}
			if match := jsFunctionRe.FindStringSubmatch(line); match != nil {
				m.Functions = append(m.Functions, match[1])
			} else if match := jsConstFnRe.FindStringSubmatch(line); match != nil {
				m.Functions = append(m.Functions, match[1])
			}
			if match := jsClassRe.FindStringSubmatch(line); match != nil {
				m.Types = append(m.Types, match[1])
			}
		default:
			if match := genericDefRe.FindStringSubmatch(line); match != nil {
				m.Functions = append(m.Functions, match[1])
			}
		}

		if docCommentRe.MatchString(line) {
			m.DocComments++
		}
	}

	m.Complexity = len(m.Functions) + len(m.Types) + len(m.Imports)
}
