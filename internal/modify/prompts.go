package modify

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/auto-improve/internal/introspect"
)

const generationSystemPrompt = `You are a careful code improvement assistant.
You rewrite exactly one source file at a time. Rules:
- Output ONLY the complete replacement file content, no commentary, no markdown fences.
- Preserve the file's public behavior unless the instruction says otherwise.
- Preserve the file's language, imports style, and formatting conventions.
- Never invent references to files or symbols that do not exist.`

// instructionFor maps an improvement type to its generation instruction.
func instructionFor(t introspect.OpportunityType) string {
	switch t {
	case introspect.OpRefactorComplexity:
		return "Reduce cyclomatic complexity by extracting well-named helper functions. Keep behavior identical."
	case introspect.OpSplitLargeFile:
		return "Reorganize this file internally: group related declarations, extract helpers, and remove duplication so a later split into smaller modules becomes mechanical. Do not change exported names."
	case introspect.OpReduceCoupling:
		return "Reduce coupling: remove unnecessary imports and indirect the heaviest dependencies behind small local interfaces or parameters."
	case introspect.OpAddDocumentation:
		return "Add concise documentation comments to every exported (or public) declaration that lacks one. Do not change any code."
	case introspect.OpOptimizeImports:
		return "Clean up the import block: remove unused imports, deduplicate, and order them idiomatically. Do not change any other code."
	case introspect.OpFixCodeSmell:
		return "Fix obvious code smells: dead code, shadowed variables, misleading names, copy-paste duplication. Keep behavior identical."
	case introspect.OpAddTests:
		return "This file lacks tests; restructure it minimally so its core logic is testable (pure functions, injected dependencies) without changing behavior."
	default:
		return "Improve the file's clarity and structure without changing behavior."
	}
}

// generationPrompt assembles the user prompt for one replacement generation.
// Reviewer feedback from earlier revision rounds is appended so regenerated
// proposals actually address it.
func generationPrompt(opp introspect.Opportunity, metrics *introspect.FileMetrics, content string, feedback []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", opp.File)
	fmt.Fprintf(&b, "Problem: %s\n", opp.Message)
	fmt.Fprintf(&b, "Instruction: %s\n", instructionFor(opp.Type))
	if metrics != nil {
		fmt.Fprintf(&b, "Current metrics: %d lines, complexity %d, %d functions, %d imports.\n",
			metrics.Lines, metrics.Complexity, len(metrics.Functions), len(metrics.Imports))
	}
	if len(feedback) > 0 {
		b.WriteString("\nReviewer feedback to address:\n")
		for _, f := range feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	b.WriteString("\nCurrent file content:\n")
	b.WriteString(content)
	b.WriteString("\n\nOutput the complete replacement file content now.")
	return b.String()
}

// stripFences removes a wrapping markdown code fence if the model added one
// despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimRight(s, "\n") + "\n"
}
