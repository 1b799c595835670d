// Package tokencount estimates prompt sizes for budget enforcement before
// calling chat models.
package tokencount

import (
	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// Count returns the token count of text under the given model's encoding.
// Unknown models fall back to cl100k_base; if even that fails, a rough
// 4-bytes-per-token estimate is returned so budgeting still works offline.
func Count(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// Truncate cuts text down to at most maxTokens tokens under the model's
// encoding. Text already within budget is returned unchanged.
func Truncate(model, text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		// Byte-level approximation when no encoding is available.
		limit := maxTokens * 4
		if len(text) <= limit {
			return text
		}
		return text[:limit]
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
