package lessons

import "github.com/abhisek/edubot/internal/llm"

// PassageSchema defines the JSON schema for reading passage generation.
var PassageSchema = &llm.Schema{
	Name:        "reading-passage",
	Description: "A titled reading passage for comprehension practice",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short title for the passage (3-8 words)",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The passage, 3-5 paragraphs of plain text",
			},
		},
		"required":             []any{"title", "content"},
		"additionalProperties": false,
	},
}

// QuizSchema defines the JSON schema for quiz generation.
var QuizSchema = &llm.Schema{
	Name:        "reading-quiz",
	Description: "A multiple-choice comprehension quiz",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short title for the quiz",
			},
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 20,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]any{
							"type":     "array",
							"items":    map[string]any{"type": "string"},
							"minItems": 2,
							"maxItems": 6,
						},
						"answer": map[string]any{
							"type":        "string",
							"description": "Letter of the correct option",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the answer is correct",
						},
					},
					"required":             []any{"question", "options", "answer", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "questions"},
		"additionalProperties": false,
	},
}
