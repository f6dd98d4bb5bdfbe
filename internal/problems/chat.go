package problems

import "strings"

// problemIndicators are phrases that mark a chat message as describing a
// pain point worth capturing.
var problemIndicators = []string{
	"problem is", "issue with", "struggle with", "difficulty", "challenge",
}

// AddFromChat inspects a chat message for problem-indicator phrases and, when
// one is found, records the message as a chat-suggested problem. Returns nil
// when the message contains no indicator.
func (r *Repository) AddFromChat(message, domain string) (*Problem, error) {
	if domain == "" {
		domain = "General"
	}

	lower := strings.ToLower(message)
	for _, indicator := range problemIndicators {
		if !strings.Contains(lower, indicator) {
			continue
		}

		title := message
		if len(title) > 50 {
			title = title[:50]
		}
		return r.Add(
			domain,
			"User-suggested: "+title+"...",
			"Problem identified from chat: "+message,
			"Chat Interaction",
			SourceChat,
		)
	}
	return nil, nil
}
