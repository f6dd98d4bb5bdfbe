package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"storyforge/internal/stories"
)

const chatPrompt = `You are a helpful startup mentor discussing this opportunity story with a curious builder.

STORY: %s
DOMAIN: %s
PROBLEM: %s
CURRENT PATHWAY: %s
PROPOSED SOLUTION: %s

USER QUESTION: %s

Answer in 2-4 sentences, concrete and encouraging. Plain text only.`

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
		StoryID int    `json:"storyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "message is required"})
		return
	}

	var story stories.Story
	if req.StoryID != 0 {
		found, ok := s.findStory(req.StoryID)
		if !ok {
			notFound(w)
			return
		}
		story = found
	}

	// Messages describing a problem become candidate problem records.
	if s.repo != nil {
		if _, err := s.repo.AddFromChat(req.Message, story.Domain); err != nil {
			log.Printf("Recording chat suggestion: %v", err)
		}
	}

	answer := s.chatAnswer(r.Context(), story, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{
		"response":  answer,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) chatAnswer(ctx context.Context, story stories.Story, message string) string {
	if s.provider != nil && s.provider.IsConfigured() {
		prompt := fmt.Sprintf(chatPrompt, story.Title, story.Domain, story.Problem, story.Pathway, story.Solution, message)
		if text, err := s.provider.Generate(ctx, prompt, 300); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		} else if err != nil {
			log.Printf("Chat generation failed, using template: %v", err)
		}
	}
	return templateAnswer(story, message)
}

// templateAnswer picks a canned reply by keyword when no model is available.
func templateAnswer(story stories.Story, message string) string {
	title := story.Title
	if title == "" {
		title = "this opportunity"
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "problem"):
		if story.Problem != "" {
			return fmt.Sprintf("The core problem behind %s: %s", title, story.Problem)
		}
		return fmt.Sprintf("%s addresses a real gap people are struggling with today. Check the story's problem section for the details.", title)
	case strings.Contains(lower, "solution"):
		if story.Solution != "" {
			return fmt.Sprintf("The proposed approach for %s: %s", title, story.Solution)
		}
		return fmt.Sprintf("The solution sketch for %s is in the story above. It's a starting point, not a blueprint.", title)
	case strings.Contains(lower, "skill"):
		return fmt.Sprintf("To build %s you'd want basic product skills plus whatever the domain demands. Start with a small prototype and learn the rest as you go.", title)
	case strings.Contains(lower, "start"), strings.Contains(lower, "begin"):
		return fmt.Sprintf("A good first step for %s: talk to five people who have this problem this week, then build the smallest thing that helps one of them.", title)
	default:
		return fmt.Sprintf("Great question about %s. Dig into the problem and solution sections above, and ask me about the problem, the solution, the skills needed, or how to start.", title)
	}
}
