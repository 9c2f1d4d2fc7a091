package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"planproof/internal/port"
)

// BuildResolutionPrompt renders a resolution request as the prompt text sent
// to a provider. The model only sees the supplied evidence units and must
// cite one of them per resolved field.
func BuildResolutionPrompt(input port.ResolveInput) string {
	var b strings.Builder

	b.WriteString("You are reviewing a UK planning application document of type \"")
	b.WriteString(string(input.DocumentType))
	b.WriteString("\".\n\n")
	b.WriteString("Fill the missing fields below using ONLY the evidence units provided. ")
	b.WriteString("Do not use outside knowledge. If a field cannot be found in the evidence, omit it.\n\n")

	b.WriteString("Missing fields:\n")
	for _, f := range input.MissingFields {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}

	b.WriteString("\nEvidence units:\n")
	for _, u := range input.EvidenceUnits {
		fmt.Fprintf(&b, "[%s] (page %d) %s\n", u.ID, u.PageNumber, u.Content)
	}

	b.WriteString("\nRespond with ONLY a JSON object, no prose and no markdown fences, in this exact shape:\n")
	b.WriteString(`{
  "resolutions": [
    {
      "field_name": "one of the missing fields",
      "value": "the value found in the evidence",
      "cited_unit_id": "the [id] of the evidence unit the value came from",
      "confidence": 0.0
    }
  ]
}
`)
	b.WriteString("\nEvery resolution MUST include cited_unit_id referencing one of the evidence units above. ")
	b.WriteString("Confidence is your certainty in [0,1].\n")

	return b.String()
}

// providerResponse is the JSON shape every provider asks the model for.
type providerResponse struct {
	Resolutions []port.FieldResolution `json:"resolutions"`
}

// ParseResolutionJSON parses model output into resolutions, tolerating
// markdown code fences around the JSON.
func ParseResolutionJSON(text string) ([]port.FieldResolution, error) {
	cleaned := StripCodeFences(text)
	var resp providerResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("parsing resolution JSON: %w (raw: %s)", err, truncate(cleaned, 500))
	}
	return resp.Resolutions, nil
}

// StripCodeFences removes a surrounding ```json ... ``` fence if present.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
