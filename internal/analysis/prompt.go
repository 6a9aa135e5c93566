package analysis

import (
	"strings"
)

const systemPrompt = `You are a startup analyst and venture scout who reviews pitch decks.
Your job is to extract and structure startup insights from the text of a deck.

Analysis goals:
- Identify the startup name, tagline and value proposition
- Founders: number of founders and their full names as written in the deck
- Product: problem being solved, solution, target market
- Metrics: traction, funding or growth indicators
- Additional: notable partnerships, technology or go-to-market strategy

Be concise and factual. Only report what the deck states.`

// recordSchema is the JSON shape the model must return
const recordSchema = `{
  "startup_name": "string",
  "value_proposition": "string",
  "number_of_founders": integer or null,
  "founders": ["First Last", "..."],
  "problem": "string",
  "solution": "string",
  "target_market": "string",
  "traction": "string",
  "funding": {"amount": "string or null", "round": "string or null"} or null,
  "notable_points": ["string", "..."],
  "summary": "string",
  "investor_remark": "one-line investor remark"
}`

// buildPrompt assembles the user message for a transcript
func buildPrompt(transcript, instruction string) string {
	var b strings.Builder
	b.WriteString("Analyze this startup pitch deck and return a single JSON object with exactly these keys:\n\n")
	b.WriteString(recordSchema)
	b.WriteString("\n\nIf a field is not mentioned in the deck, set it to null (or an empty list for list fields).\n")
	b.WriteString("Pages are separated by \"# Page N\" markers. Some pages may be empty when their text could not be read.\n")
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		b.WriteString("\nAdditional instructions from the reviewer:\n")
		b.WriteString(instruction)
		b.WriteString("\n")
	}
	b.WriteString("\nPitch deck content:\n\n")
	b.WriteString(transcript)
	return b.String()
}
