package conversation

// QAPair is the prompt/response shape the answer API expects. Response is
// omitted entirely for a prompt that never got an answer.
type QAPair struct {
	Prompt   string  `json:"prompt"`
	Response *string `json:"response,omitempty"`
}

// FormatHistory converts a stored transcript into the API's pairing format
// in a single left-to-right pass. A user turn immediately followed by an
// assistant turn becomes a full pair; an unpaired user turn becomes a
// prompt-only entry; anything else (stray assistant turns, legacy records
// without a role) is skipped. Malformed input never causes an error.
func FormatHistory(history []Turn) []QAPair {
	pairs := make([]QAPair, 0, (len(history)+1)/2)
	for i := 0; i < len(history); {
		if history[i].Role != RoleUser {
			i++
			continue
		}
		if i+1 < len(history) && history[i+1].Role == RoleAssistant {
			resp := history[i+1].Content
			pairs = append(pairs, QAPair{Prompt: history[i].Content, Response: &resp})
			i += 2
			continue
		}
		pairs = append(pairs, QAPair{Prompt: history[i].Content})
		i++
	}
	return pairs
}
