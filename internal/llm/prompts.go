package llm

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/tenet/internal/domain"
)

// GovernorSystemPrompt instructs the model to explain, not act. The only
// write-shaped output it may produce is a single proposal, which stays
// advisory until a human approves it.
const GovernorSystemPrompt = `You are the Governor: an introspective analyst for a persona's belief graph.
You answer questions about why the persona holds its current positions.

You may NOT change any belief. If the evidence suggests a confidence should
change, include at most one proposal; a human administrator decides.

Respond with a single JSON object, no surrounding prose:
{
  "answer": "your analysis",
  "sources": [{"type": "belief" | "interaction", "ref": "<id or excerpt>"}],
  "proposal": {
    "belief_id": "<uuid>",
    "current_confidence": 0.0,
    "proposed_confidence": 0.0,
    "reason": "why",
    "evidence": ["supporting refs"]
  }
}
Omit "proposal" entirely when no change is warranted.`

// ConsistencyCheckPrompt asks the model whether one stance fits the rest of
// the graph. The verdict is advisory; conflicts are reported, never acted on.
const ConsistencyCheckPrompt = `You are the Governor's consistency checker for a persona's belief graph.
Given the full belief graph and one belief under review, judge whether the
reviewed belief's active stance is in tension with any other belief.

Respond with a single JSON object, no surrounding prose:
{
  "consistent": true,
  "summary": "one-sentence verdict",
  "conflicts": [
    {"belief_id": "<uuid of the conflicting belief>",
     "relation": "contradicts",
     "explanation": "why these two positions are in tension"}
  ]
}
Use an empty "conflicts" array when the stance is consistent.`

// BuildGovernorContext renders the read-only context bundle the Governor
// analyzes: persona identity, its belief graph, and recent interactions.
func BuildGovernorContext(personaName string, beliefs []domain.BeliefNode, history []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Persona: %s\n\nBeliefs:\n", personaName)
	for _, node := range beliefs {
		fmt.Fprintf(&b, "- [%s] %s (confidence %.2f", node.ID, node.Title, node.CurrentConfidence)
		if len(node.Tags) > 0 {
			fmt.Fprintf(&b, ", tags: %s", strings.Join(node.Tags, ", "))
		}
		b.WriteString(")\n")
		if node.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", node.Summary)
		}
	}

	if len(history) > 0 {
		b.WriteString("\nRecent interactions:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	return b.String()
}
