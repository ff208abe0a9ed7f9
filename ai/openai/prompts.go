package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/suggestit/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "locations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "label": {"type": "string"}
        },
        "required": ["name", "label"],
        "additionalProperties": false
      }
    }
  },
  "required": ["locations"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Find every place name in the given search query and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Name must be copied from the query as written, with capitalization fixed.
- Label field must match exactly one of the listed values: %s.
- List places in the order they appear in the query.
- Words like "near me", "nearby" or "local" are not places.
- Services, professions and business names are not places.
- If no places are mentioned, return "locations": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "plumber in austin"
Output:
{
  "locations": [
    {"name":"Austin","label":"city"}
  ]
}

Example (no place):
Input: "best dentist near me"
Output:
{
  "locations": []
}

Example (neighborhood and city):
Input: "hair salon soho new york"
Output:
{
  "locations": [
    {"name":"SoHo","label":"neighborhood"},
    {"name":"New York","label":"city"}
  ]
}`

// buildSystemPrompt creates the system prompt with location labels embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.LocationLabels, ", "))
}
