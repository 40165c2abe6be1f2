package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPayload is returned when a response body cannot be turned into
// the canonical types.
var ErrInvalidPayload = errors.New("invalid payload")

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number, a numeric string, or null.
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = flexInt{}
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = flexInt{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexInt{Value: int(v), Valid: true}
	return nil
}

type wireQuestion struct {
	Question      string     `json:"question"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	Answer        flexString `json:"answer"`
	CorrectAnswer flexString `json:"correct_answer"`
	CorrectCamel  flexString `json:"correctAnswer"`
	CorrectLetter flexString `json:"correct_letter"`
	Correct       flexString `json:"correct"`
	Explanation   string     `json:"explanation"`
}

func (w wireQuestion) answer() string {
	for _, a := range []flexString{w.Answer, w.CorrectAnswer, w.CorrectCamel, w.CorrectLetter, w.Correct} {
		if strings.TrimSpace(string(a)) != "" {
			return string(a)
		}
	}
	return ""
}

type wireQuiz struct {
	Title     string         `json:"title"`
	Questions []wireQuestion `json:"questions"`
}

type wireLesson struct {
	ID        flexString      `json:"id"`
	LessonID  flexString      `json:"lesson_id"`
	Topic     string          `json:"topic"`
	Title     string          `json:"title"`
	Content   *string         `json:"content"`
	Text      *string         `json:"text"`
	Quiz      json.RawMessage `json:"quiz"`
	Questions []wireQuestion  `json:"questions"`
}

// DecodeLesson normalises a lesson payload into a Lesson. Every question's
// recorded answer is resolved to its canonical letter; a question whose
// answer does not identify exactly one option rejects the whole lesson, as
// does an empty quiz.
func DecodeLesson(raw []byte) (*Lesson, error) {
	if err := checkLessonShape(raw); err != nil {
		return nil, err
	}
	var w wireLesson
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	l := &Lesson{
		ID:    string(w.ID),
		Topic: strings.TrimSpace(w.Topic),
		Title: strings.TrimSpace(w.Title),
	}
	if l.ID == "" {
		l.ID = string(w.LessonID)
	}
	switch {
	case w.Content != nil && strings.TrimSpace(*w.Content) != "":
		l.Content = *w.Content
	case w.Text != nil:
		l.Content = *w.Text
	}
	l.Content = strings.TrimSpace(l.Content)

	questions := w.Questions
	qs, title, err := decodeQuiz(w.Quiz)
	if err != nil {
		return nil, err
	}
	if qs != nil {
		questions = qs
		if l.Title == "" {
			l.Title = title
		}
	}

	quiz, err := normalizeQuestions(questions)
	if err != nil {
		return nil, err
	}
	l.Quiz = quiz
	return l, nil
}

func decodeQuiz(raw json.RawMessage) ([]wireQuestion, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, "", nil
	}
	if raw[0] == '[' {
		var qs []wireQuestion
		if err := json.Unmarshal(raw, &qs); err != nil {
			return nil, "", fmt.Errorf("%w: quiz: %v", ErrInvalidPayload, err)
		}
		if qs == nil {
			qs = []wireQuestion{}
		}
		return qs, "", nil
	}
	var q wireQuiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, "", fmt.Errorf("%w: quiz: %v", ErrInvalidPayload, err)
	}
	if q.Questions == nil {
		q.Questions = []wireQuestion{}
	}
	return q.Questions, strings.TrimSpace(q.Title), nil
}

func normalizeQuestions(in []wireQuestion) ([]Question, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: lesson has no questions", ErrInvalidPayload)
	}
	out := make([]Question, 0, len(in))
	for i, w := range in {
		q, err := NormalizeQuestion(firstNonEmpty(w.Question, w.Text), w.Options, w.answer(), w.Explanation)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// NormalizeQuestion builds a canonical Question, resolving answer to its
// canonical letter.
func NormalizeQuestion(text string, options []string, answer, explanation string) (Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, fmt.Errorf("%w: empty question text", ErrInvalidPayload)
	}
	if len(options) < 2 {
		return Question{}, fmt.Errorf("%w: need at least two options", ErrInvalidPayload)
	}
	opts := make([]string, len(options))
	for i, o := range options {
		opts[i] = strings.TrimSpace(o)
		if opts[i] == "" {
			return Question{}, fmt.Errorf("%w: option %d is empty", ErrInvalidPayload, i+1)
		}
	}
	letter, err := ResolveAnswer(opts, answer)
	if err != nil {
		return Question{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return Question{
		Text:        text,
		Options:     opts,
		Answer:      letter,
		Explanation: strings.TrimSpace(explanation),
	}, nil
}

type wireCreate struct {
	Assigned   bool   `json:"assigned"`
	AssignedTo string `json:"assigned_to"`
}

// DecodeCreateResult normalises the response of a creation endpoint. A body
// flagged as assigned carries no lesson.
func DecodeCreateResult(raw []byte) (*CreateResult, error) {
	var w wireCreate
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if w.Assigned || w.AssignedTo != "" {
		return &CreateResult{Assigned: true}, nil
	}
	l, err := DecodeLesson(raw)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Lesson: l}, nil
}

type wireHistoryEntry struct {
	ID           flexString `json:"id"`
	LessonID     flexString `json:"lesson_id"`
	Topic        string     `json:"topic"`
	IsAssignment bool       `json:"is_assignment"`
	Score        flexInt    `json:"score"`
	Status       string     `json:"status"`
	Timestamp    string     `json:"timestamp"`
	CreatedAt    string     `json:"created_at"`
}

// DecodeHistory normalises a history listing. Entries without an id are
// dropped. A missing status is derived from the score.
func DecodeHistory(raw []byte) ([]HistoryEntry, error) {
	var ws []wireHistoryEntry
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("%w: history: %v", ErrInvalidPayload, err)
	}
	out := make([]HistoryEntry, 0, len(ws))
	for _, w := range ws {
		id := firstNonEmpty(string(w.ID), string(w.LessonID))
		if id == "" {
			continue
		}
		e := HistoryEntry{
			ID:           id,
			Topic:        strings.TrimSpace(w.Topic),
			IsAssignment: w.IsAssignment,
			CreatedAt:    ParseTime(firstNonEmpty(w.Timestamp, w.CreatedAt)),
		}
		if w.Score.Valid {
			s := w.Score.Value
			e.Score = &s
		}
		switch Status(strings.ToLower(w.Status)) {
		case StatusCompleted:
			e.Status = StatusCompleted
		case StatusPending:
			e.Status = StatusPending
		default:
			if e.Score != nil {
				e.Status = StatusCompleted
			} else {
				e.Status = StatusPending
			}
		}
		out = append(out, e)
	}
	return out, nil
}

type wireDashboardRow struct {
	Student      string  `json:"student"`
	StudentName  string  `json:"student_name"`
	StudentEmail string  `json:"student_email"`
	Topic        string  `json:"topic"`
	Score        flexInt `json:"score"`
	Total        flexInt `json:"total"`
	Status       string  `json:"status"`
	Date         string  `json:"date"`
	Timestamp    string  `json:"timestamp"`
}

// DecodeDashboard normalises the teacher dashboard listing.
func DecodeDashboard(raw []byte) ([]DashboardRow, error) {
	var ws []wireDashboardRow
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("%w: dashboard: %v", ErrInvalidPayload, err)
	}
	out := make([]DashboardRow, 0, len(ws))
	for _, w := range ws {
		r := DashboardRow{
			Student: firstNonEmpty(w.Student, w.StudentName, w.StudentEmail),
			Topic:   strings.TrimSpace(w.Topic),
			Score:   w.Score.Value,
			Total:   w.Total.Value,
			Status:  StatusPending,
			Date:    ParseTime(firstNonEmpty(w.Date, w.Timestamp)),
		}
		if Status(strings.ToLower(w.Status)) == StatusCompleted || (w.Status == "" && w.Score.Valid) {
			r.Status = StatusCompleted
		}
		out = append(out, r)
	}
	return out, nil
}

type wireUser struct {
	ID       flexString `json:"id"`
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role"`
	Grade    flexString `json:"grade"`
	Section  flexString `json:"section"`
}

// DecodeUsers normalises a user listing or search result.
func DecodeUsers(raw []byte) ([]UserSummary, error) {
	var ws []wireUser
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("%w: users: %v", ErrInvalidPayload, err)
	}
	out := make([]UserSummary, 0, len(ws))
	for _, w := range ws {
		out = append(out, UserSummary{
			ID:      string(w.ID),
			Name:    firstNonEmpty(w.Name, w.Username),
			Email:   strings.TrimSpace(w.Email),
			Role:    ParseRole(w.Role),
			Grade:   string(w.Grade),
			Section: string(w.Section),
		})
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the backend emits. Timestamps
// without a zone are UTC. Unparseable input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
