package llm

import (
	"fmt"

	"github.com/futig/omnistudy/internal/entity"
)

const systemInstruction = `You are OmniStudy AI, a world-class personal tutor and study assistant.
Your goal is to help students learn effectively.

CORE PRINCIPLES:
1. Simplify: Use the Feynman technique. Explain complex topics as if to a 10-year-old, then add professional depth.
2. Examples: Always provide 2-3 relatable, real-world examples for every concept.
3. Interactive: Encourage the student to ask questions or try a small exercise.
4. Structure: Use Markdown (headers, bullet points, bold text) to make content readable.

MODES:
- EXPLAIN: Focus on clarity and examples.
- QUIZ: If asked for a quiz, you MUST return a valid JSON structure following the requested format.
- STUDY_PLAN: Create a time-boxed schedule for exam preparation.
- SUMMARIZE: Condense long texts into key takeaways.

When using Google Search grounding, mention the sources at the end of your explanation.`

// EmptyExplanation replaces an explanation reply without text
const EmptyExplanation = "I'm sorry, I couldn't generate a response."

const jsonMimeType = "application/json"

func explainInstruction(mode entity.Mode) string {
	return systemInstruction + fmt.Sprintf("\n\nCurrent mode: %s. Provide a helpful text explanation with examples.", mode)
}

func quizPrompt(topic string) string {
	return fmt.Sprintf("Generate a 5-question multiple choice quiz about: %s. Provide the output in JSON format.", topic)
}

func studyPlanPrompt(goal string) string {
	return fmt.Sprintf("Create a structured study plan for: %s. Provide the output in JSON format.", goal)
}

func summaryPrompt(text string) string {
	return fmt.Sprintf("Summarize the following content and provide key takeaways: %s. Provide the output in JSON format.", text)
}

func str(description string) *entity.LLMSchema {
	return &entity.LLMSchema{Type: "STRING", Description: description}
}

func strList() *entity.LLMSchema {
	return &entity.LLMSchema{Type: "ARRAY", Items: str("")}
}

var quizSchema = &entity.LLMSchema{
	Type: "OBJECT",
	Properties: map[string]*entity.LLMSchema{
		"title": str(""),
		"questions": {
			Type: "ARRAY",
			Items: &entity.LLMSchema{
				Type: "OBJECT",
				Properties: map[string]*entity.LLMSchema{
					"question":      str(""),
					"options":       strList(),
					"correctAnswer": {Type: "INTEGER", Description: "Index of the correct option (0-3)"},
					"explanation":   str(""),
				},
				Required: []string{"question", "options", "correctAnswer", "explanation"},
			},
		},
	},
	Required: []string{"title", "questions"},
}

var studyPlanSchema = &entity.LLMSchema{
	Type: "OBJECT",
	Properties: map[string]*entity.LLMSchema{
		"title": str(""),
		"items": {
			Type: "ARRAY",
			Items: &entity.LLMSchema{
				Type: "OBJECT",
				Properties: map[string]*entity.LLMSchema{
					"topic":       str(""),
					"duration":    str("e.g. '2 hours' or 'Day 1'"),
					"description": str(""),
					"resources":   strList(),
				},
				Required: []string{"topic", "duration", "description", "resources"},
			},
		},
	},
	Required: []string{"title", "items"},
}

var summarySchema = &entity.LLMSchema{
	Type: "OBJECT",
	Properties: map[string]*entity.LLMSchema{
		"mainPoint": str(""),
		"takeaways": strList(),
		"context":   str("One sentence context"),
	},
	Required: []string{"mainPoint", "takeaways"},
}
