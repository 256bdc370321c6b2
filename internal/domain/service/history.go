package service

import (
	"github.com/reelchat/reelchat/internal/domain/entity"
)

// BuildHistory converts a stored transcript into the model's message format.
// At most limit of the most recent messages are kept; limit 0 keeps only the
// latest user message. Agent messages map to the "assistant" role.
func BuildHistory(transcript []*entity.Message, limit int) []LLMMessage {
	if limit <= 0 {
		for i := len(transcript) - 1; i >= 0; i-- {
			if transcript[i].IsFromUser() {
				return []LLMMessage{toLLMMessage(transcript[i])}
			}
		}
		return []LLMMessage{}
	}

	start := 0
	if len(transcript) > limit {
		start = len(transcript) - limit
	}
	out := make([]LLMMessage, 0, len(transcript)-start)
	for _, m := range transcript[start:] {
		out = append(out, toLLMMessage(m))
	}
	return out
}

func toLLMMessage(m *entity.Message) LLMMessage {
	role := "user"
	if m.IsFromAgent() {
		role = "assistant"
	}
	return LLMMessage{Role: role, Content: m.Content()}
}
