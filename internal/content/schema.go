package content

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var questionDef = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question": map[string]any{"type": "string"},
		"text":     map[string]any{"type": "string"},
		"options": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 2,
		},
		"explanation": map[string]any{"type": "string"},
	},
	"required": []any{"options"},
	"anyOf": []any{
		map[string]any{"required": []any{"question"}},
		map[string]any{"required": []any{"text"}},
	},
}

var quizDef = map[string]any{
	"anyOf": []any{
		map[string]any{"type": "array", "items": questionDef},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":     map[string]any{"type": "string"},
				"questions": map[string]any{"type": "array", "items": questionDef},
			},
			"required": []any{"questions"},
		},
	},
}

// lessonSchemaDef describes every lesson payload shape the backend has
// produced: the quiz either inline or wrapped, the passage under "content"
// or "text".
var lessonSchemaDef = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":        map[string]any{"type": []any{"string", "integer"}},
		"lesson_id": map[string]any{"type": []any{"string", "integer"}},
		"topic":     map[string]any{"type": "string"},
		"title":     map[string]any{"type": "string"},
		"content":   map[string]any{"type": []any{"string", "null"}},
		"text":      map[string]any{"type": []any{"string", "null"}},
		"quiz":      quizDef,
		"questions": map[string]any{"type": "array", "items": questionDef},
	},
	"anyOf": []any{
		map[string]any{"required": []any{"quiz"}},
		map[string]any{"required": []any{"questions"}},
	},
}

var (
	lessonSchemaOnce sync.Once
	lessonSchema     *jsonschema.Schema
	lessonSchemaErr  error
)

func compiledLessonSchema() (*jsonschema.Schema, error) {
	lessonSchemaOnce.Do(func() {
		// The compiler wants plain JSON values, so round-trip the Go literal.
		defBytes, err := json.Marshal(lessonSchemaDef)
		if err != nil {
			lessonSchemaErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			lessonSchemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://lesson-payload.json"
		if err := c.AddResource(url, def); err != nil {
			lessonSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		lessonSchema, lessonSchemaErr = c.Compile(url)
	})
	return lessonSchema, lessonSchemaErr
}

// checkLessonShape validates a raw lesson payload against the lesson schema.
func checkLessonShape(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidPayload, err)
	}
	compiled, err := compiledLessonSchema()
	if err != nil {
		return fmt.Errorf("compile lesson schema: %w", err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
