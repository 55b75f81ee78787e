package review

import (
	"fmt"
	"strings"
)

const responseSchema = `Respond with a single JSON object and nothing else:
{
  "decision": "approve" | "revise" | "reject",
  "risk_level": "low" | "medium" | "high",
  "confidence": <number between 0.0 and 1.0>,
  "comments": "<short assessment>",
  "concerns": ["<specific concern>", ...],
  "recommendations": ["<specific recommendation>", ...]
}`

const securityRubric = `You are the security reviewer on a code-change review council.
Evaluate ONLY the security implications of the proposed change.

Reject-level findings, regardless of the stated rationale:
- changes to authentication or credential-handling files
- removal or weakening of input validation
- use of dynamic code execution (eval/exec) or shell invocation
- secrets, keys, or tokens appearing in code or logs

Request revision for anything suspicious but fixable. Approve only when
the change has no security impact.

` + responseSchema

const performanceRubric = `You are the performance reviewer on a code-change review council.
Evaluate ONLY the performance implications of the proposed change.

Flag and weigh heavily:
- nested loops over large collections
- database or network queries issued inside loops (N+1 patterns)
- blocking calls on asynchronous code paths
- materializing large datasets in memory at once

Approve changes that are performance-neutral or better. Request revision
when a cheaper approach is obvious. Reject clear regressions.

` + responseSchema

const qualityRubric = `You are the code-quality reviewer on a code-change review council.
Evaluate ONLY maintainability and craftsmanship.

Flag:
- complex changes arriving without accompanying tests
- functions that remain over-long or deeply nested after the change
- new public declarations without documentation
- vague or misleading naming

Approve clean changes. Request revision for fixable craft issues.
Reject changes that make the code materially harder to maintain.

` + responseSchema

const architectSchema = `Respond with a single JSON object and nothing else:
{
  "decision": "approve" | "revise" | "reject",
  "risk_level": "low" | "medium" | "high",
  "confidence": <number between 0.0 and 1.0>,
  "comments": "<short assessment>",
  "required_changes": ["<change the author must make>", ...]
}`

// architectSystemPrompt builds the architect's instruction set, including
// the critical-file allowlist.
func architectSystemPrompt(criticalFiles []string) string {
	var b strings.Builder
	b.WriteString(`You are the chief architect reviewing a proposed code change after a
three-member review council has voted. You have final authority.

Decision policy:
- Never approve changes touching the critical paths listed below unless
  your confidence is very high (>= 0.9).
- Always reject anything that exposes secrets or disables validation.
- Prefer small, safe refactors over large rewrites; request revision of
  sweeping changes.
- Weigh the historical success statistics you are given: a change type
  that keeps failing deserves extra skepticism.

Critical paths:
`)
	for _, f := range criticalFiles {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n")
	b.WriteString(architectSchema)
	return b.String()
}

// proposalPrompt renders a proposal for any reviewer.
func proposalPrompt(p *Proposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Affected files: %s\n", strings.Join(p.AffectedFiles, ", "))
	fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
	fmt.Fprintf(&b, "Rationale: %s\n", p.Rationale)
	fmt.Fprintf(&b, "Predicted success: %.2f\n", p.PredictedSuccess)
	if p.MetricsBefore != nil {
		fmt.Fprintf(&b, "Current metrics: %d lines, complexity %d, %d functions\n",
			p.MetricsBefore.Lines, p.MetricsBefore.Complexity, len(p.MetricsBefore.Functions))
	}
	b.WriteString("\nProposed change (unified diff):\n")
	b.WriteString(p.Diff)
	return b.String()
}

// architectPrompt renders the proposal plus council summary and history.
func architectPrompt(p *Proposal, council *CouncilDecision, overall, perType string) string {
	var b strings.Builder
	b.WriteString(proposalPrompt(p))
	b.WriteString("\n\n")

	if council != nil {
		fmt.Fprintf(&b, "Council verdict: %s (overall risk %s, confidence %.2f)\n",
			council.Decision, council.OverallRisk, council.Confidence)
		for _, d := range council.Reviewers() {
			fmt.Fprintf(&b, "- %s: %s (risk %s, confidence %.2f): %s\n",
				d.Reviewer, d.Decision, d.RiskLevel, d.Confidence, d.Comments)
			for _, c := range d.Concerns {
				fmt.Fprintf(&b, "    concern: %s\n", c)
			}
		}
	} else {
		b.WriteString("Council verdict: unavailable\n")
	}

	b.WriteString("\nHistorical context:\n")
	fmt.Fprintf(&b, "- overall: %s\n", overall)
	fmt.Fprintf(&b, "- this change type: %s\n", perType)
	return b.String()
}
