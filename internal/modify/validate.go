package modify

import (
	"errors"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

// validateSyntax checks that generated content is plausibly valid source for
// its language. Go gets a full parse; everything else gets a cheap structural
// check (balanced brackets, non-trivial content) since we cannot assume the
// language's toolchain is installed.
func validateSyntax(path, language, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("generated content is empty")
	}

	switch language {
	case "Go":
		fset := token.NewFileSet()
		if _, err := parser.ParseFile(fset, path, content, 0); err != nil {
			return fmt.Errorf("go syntax error: %w", err)
		}
		return nil
	default:
		return checkBalance(content)
	}
}

// countDiagnostics reports how many syntax diagnostics content produces. Go
// parses with full error recovery so each error is counted individually;
// other languages report at most the one structural problem checkBalance can
// find.
func countDiagnostics(path, language, content string) int {
	switch language {
	case "Go":
		fset := token.NewFileSet()
		_, err := parser.ParseFile(fset, path, content, parser.AllErrors)
		if err == nil {
			return 0
		}
		var list scanner.ErrorList
		if errors.As(err, &list) {
			return len(list)
		}
		return 1
	default:
		if checkBalance(content) != nil {
			return 1
		}
		return 0
	}
}

// checkBalance verifies that braces, brackets, and parens close in order,
// skipping string literals and line comments. A heuristic, not a parser.
func checkBalance(content string) error {
	var stack []byte
	var inString byte // 0, '\'', '"', '`'

	for i := 0; i < len(content); i++ {
		c := content[i]

		if inString != 0 {
			if c == '\\' {
				i++
			} else if c == inString {
				inString = 0
			}
			continue
		}

		switch c {
		case '\'', '"', '`':
			inString = c
		case '#':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case '/':
			if i+1 < len(content) && content[i+1] == '/' {
				for i < len(content) && content[i] != '\n' {
					i++
				}
			}
		case '{', '[', '(':
			stack = append(stack, c)
		case '}', ']', ')':
			if len(stack) == 0 {
				return fmt.Errorf("unbalanced %q at offset %d", c, i)
			}
			open := stack[len(stack)-1]
			if (c == '}' && open != '{') || (c == ']' && open != '[') || (c == ')' && open != '(') {
				return fmt.Errorf("mismatched %q at offset %d", c, i)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("%d unclosed brackets", len(stack))
	}
	return nil
}
