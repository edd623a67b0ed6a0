package provider

import (
	"context"
)

// summaryPrompt asks for a compact machine-readable description of a code
// node or a batch of child summaries.
const summaryPrompt = `You are a static-code summarization assistant.
Given code or child summaries, produce a compact, machine-readable JSON object describing the node.
Required fields:
- "role": short label (e.g., "utility fn", "stateful class", "config file", "API wrapper")
- "purpose": 1-2 sentences on what this node does
- "deps": "internal": referenced project functions/classes/modules, "external": imported libraries
- "contracts": key assumptions or pre/post conditions
- "effects": side effects (I/O, logs, state)
- "errors": edge cases or exceptions
- "risks": things an edit must not break
- "links": any related nodes
- "sum": 2-3 sentence natural summary
- "conf": confidence (0-1)
Be extremely concise and strictly output JSON only.`

// Summarizer turns a Provider into the single-text summarization function
// the semantic tree consumes.
type Summarizer struct {
	p Provider
}

// NewSummarizer wraps a provider.
func NewSummarizer(p Provider) *Summarizer {
	return &Summarizer{p: p}
}

// Summarize sends the text under the standard summarization prompt.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.p.Chat(ctx, []Message{
		{Role: "system", Content: summaryPrompt},
		{Role: "user", Content: text},
	})
}
