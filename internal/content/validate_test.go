package content

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateRequestCheck(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateRequest
		wantField string
	}{
		{"valid topic", CreateRequest{Source: SourceTopic, Topic: "Photosynthesis"}, ""},
		{"valid text", CreateRequest{Source: SourceText, Text: "A long enough passage."}, ""},
		{"valid file", CreateRequest{Source: SourceFile, FilePath: "notes.txt"}, ""},
		{"valid assign", CreateRequest{Source: SourceTopic, Topic: "Rain", Options: CreateOptions{AssignTo: "kid@example.com"}}, ""},
		{"missing source", CreateRequest{Topic: "Rain"}, "source"},
		{"unknown source", CreateRequest{Source: "video", Topic: "Rain"}, "source"},
		{"blank topic", CreateRequest{Source: SourceTopic, Topic: "   "}, "topic"},
		{"long topic", CreateRequest{Source: SourceTopic, Topic: strings.Repeat("x", 201)}, "topic"},
		{"short text", CreateRequest{Source: SourceText, Text: "too short"}, "text"},
		{"missing file", CreateRequest{Source: SourceFile}, "file_path"},
		{"too many questions", CreateRequest{Source: SourceTopic, Topic: "Rain", Options: CreateOptions{NumQuestions: 21}}, "num_questions"},
		{"bad difficulty", CreateRequest{Source: SourceTopic, Topic: "Rain", Options: CreateOptions{Difficulty: "extreme"}}, "difficulty"},
		{"bad assignee", CreateRequest{Source: SourceTopic, Topic: "Rain", Options: CreateOptions{AssignTo: "not-an-email"}}, "assign_to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Check()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Check() unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Check() err = %v, want *ValidationError", err)
			}
			found := false
			for _, f := range verr.Fields {
				if strings.HasSuffix(f.Field, "."+tt.wantField) {
					found = true
				}
			}
			if !found {
				t.Errorf("Check() fields = %+v, want one ending in %q", verr.Fields, tt.wantField)
			}
		})
	}
}

func TestCreateRequestDefaults(t *testing.T) {
	req, err := CreateRequest{Source: SourceTopic, Topic: "  Rain  "}.Check()
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if req.Options.NumQuestions != DefaultNumQuestions {
		t.Errorf("NumQuestions = %d, want %d", req.Options.NumQuestions, DefaultNumQuestions)
	}
	if req.Options.Difficulty != DifficultyMedium {
		t.Errorf("Difficulty = %q, want %q", req.Options.Difficulty, DifficultyMedium)
	}
	if req.Topic != "Rain" {
		t.Errorf("Topic = %q, want trimmed", req.Topic)
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := Validate(Credentials{Email: "a@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	err := Validate(Credentials{Email: "nope", Password: "  "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() err = %v, want *ValidationError", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("got %d field errors, want 2: %+v", len(verr.Fields), verr.Fields)
	}
}
