// Package offline implements the content service on the local store and an
// LLM provider, for use without a backend.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/lessons"
	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/store"
)

// APIURL tags attempt events recorded in offline mode.
const APIURL = "offline"

// Options configures New.
type Options struct {
	Lessons   store.LessonRepo
	Events    store.EventRepo
	Generator *lessons.Generator

	// Owner is the local user lessons belong to.
	Owner string
	Role  content.Role

	// HistoryLimit caps ListHistory. 0 returns everything.
	HistoryLimit int
	Logger       *logging.Logger
}

// Service is a ContentService backed by SQLite and an LLM.
type Service struct {
	lessons store.LessonRepo
	events  store.EventRepo
	gen     *lessons.Generator
	owner   string
	role    content.Role
	limit   int
	log     *logging.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Lessons == nil || opts.Events == nil || opts.Generator == nil {
		return nil, fmt.Errorf("offline service needs a lesson repo, an event repo and a generator")
	}
	if strings.TrimSpace(opts.Owner) == "" {
		return nil, fmt.Errorf("offline service needs an owner")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Service{
		lessons: opts.Lessons,
		events:  opts.Events,
		gen:     opts.Generator,
		owner:   opts.Owner,
		role:    content.ParseRole(string(opts.Role)),
		limit:   opts.HistoryLimit,
		log:     opts.Logger.With("component", "offline"),
	}, nil
}

func (s *Service) ListHistory(ctx context.Context) ([]content.HistoryEntry, error) {
	recs, err := s.lessons.List(ctx, s.owner, s.limit)
	if err != nil {
		return nil, &api.Error{Kind: api.KindServer, Op: "offline list history", Err: err}
	}
	out := make([]content.HistoryEntry, 0, len(recs))
	for _, r := range recs {
		status := content.StatusPending
		if r.Score != nil {
			status = content.StatusCompleted
		}
		out = append(out, content.HistoryEntry{
			ID:           r.ID,
			Topic:        firstNonBlank(r.Topic, r.Title),
			IsAssignment: r.IsAssignment,
			Score:        r.Score,
			Status:       status,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) GetHistoryEntry(ctx context.Context, id string) (*content.Lesson, error) {
	const op = "offline get lesson"
	r, err := s.lessons.Get(ctx, s.owner, id)
	if err != nil {
		return nil, &api.Error{Kind: api.KindServer, Op: op, Err: err}
	}
	if r == nil {
		return nil, &api.Error{Kind: api.KindNotFound, Op: op}
	}
	var quiz []content.Question
	if err := json.Unmarshal([]byte(r.Quiz), &quiz); err != nil {
		return nil, &api.Error{Kind: api.KindServer, Op: op, Err: fmt.Errorf("decode stored quiz: %w", err)}
	}
	return &content.Lesson{ID: r.ID, Topic: r.Topic, Title: r.Title, Content: r.Content, Quiz: quiz}, nil
}

func (s *Service) DeleteHistoryEntry(ctx context.Context, id string) error {
	const op = "offline delete lesson"
	ok, err := s.lessons.Delete(ctx, s.owner, id)
	if err != nil {
		return &api.Error{Kind: api.KindServer, Op: op, Err: err}
	}
	if !ok {
		return &api.Error{Kind: api.KindNotFound, Op: op}
	}
	return nil
}

func (s *Service) CreateFromText(ctx context.Context, text string, opts content.CreateOptions) (*content.CreateResult, error) {
	req, err := s.check(content.CreateRequest{Source: content.SourceText, Text: text, Options: opts})
	if err != nil {
		return nil, err
	}
	quiz, err := s.gen.Quiz(ctx, lessons.QuizInput{
		Text:         req.Text,
		NumQuestions: req.Options.NumQuestions,
		Difficulty:   req.Options.Difficulty,
	})
	if err != nil {
		return nil, generationError("generate quiz", err)
	}
	return s.save(ctx, quiz.Title, quiz.Title, req.Text, quiz.Questions, req.Options)
}

func (s *Service) CreateFromTopic(ctx context.Context, topic string, opts content.CreateOptions) (*content.CreateResult, error) {
	req, err := s.check(content.CreateRequest{Source: content.SourceTopic, Topic: topic, Options: opts})
	if err != nil {
		return nil, err
	}
	passage, err := s.gen.Passage(ctx, req.Topic, req.Options.Difficulty)
	if err != nil {
		return nil, generationError("generate passage", err)
	}
	quiz, err := s.gen.Quiz(ctx, lessons.QuizInput{
		Text:         passage.Content,
		Topic:        req.Topic,
		NumQuestions: req.Options.NumQuestions,
		Difficulty:   req.Options.Difficulty,
	})
	if err != nil {
		return nil, generationError("generate quiz", err)
	}
	return s.save(ctx, req.Topic, passage.Title, passage.Content, quiz.Questions, req.Options)
}

// CreateFromFile reads a plain text or markdown file and runs the text flow
// on it.
func (s *Service) CreateFromFile(ctx context.Context, path string, opts content.CreateOptions) (*content.CreateResult, error) {
	const op = "offline upload"
	req, err := s.check(content.CreateRequest{Source: content.SourceFile, FilePath: path, Options: opts})
	if err != nil {
		return nil, err
	}
	name := filepath.Base(req.FilePath)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
	default:
		return nil, &api.Error{Kind: api.KindValidation, Op: op, Detail: "Offline mode reads .txt and .md files only."}
	}
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, &api.Error{Kind: api.KindValidation, Op: op, Detail: fmt.Sprintf("cannot open %s", name), Err: err}
	}
	if info.Size() > api.MaxUploadBytes {
		return nil, &api.Error{Kind: api.KindValidation, Op: op, Detail: fmt.Sprintf("%s is larger than %d MB", name, api.MaxUploadBytes>>20)}
	}
	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, &api.Error{Kind: api.KindValidation, Op: op, Detail: fmt.Sprintf("cannot read %s", name), Err: err}
	}
	text := strings.TrimSpace(string(data))
	if len([]rune(text)) < content.MinTextLength {
		return nil, &api.Error{Kind: api.KindValidation, Op: op, Detail: fmt.Sprintf("%s does not contain enough text", name)}
	}

	topic := strings.TrimSuffix(name, filepath.Ext(name))
	quiz, err := s.gen.Quiz(ctx, lessons.QuizInput{
		Text:         text,
		Topic:        topic,
		NumQuestions: req.Options.NumQuestions,
		Difficulty:   req.Options.Difficulty,
	})
	if err != nil {
		return nil, generationError("generate quiz", err)
	}
	return s.save(ctx, topic, quiz.Title, text, quiz.Questions, req.Options)
}

func (s *Service) check(req content.CreateRequest) (content.CreateRequest, error) {
	req, err := req.Check()
	if err != nil {
		return req, err
	}
	if req.Options.AssignTo != "" && !s.role.Elevated() {
		return req, &api.Error{Kind: api.KindAuthorization, Op: "offline create", Detail: "Only teachers can assign work."}
	}
	return req, nil
}

// save stores the lesson for the owner, or for the assignee when the
// request assigns it.
func (s *Service) save(ctx context.Context, topic, title, text string, quiz []content.Question, opts content.CreateOptions) (*content.CreateResult, error) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return nil, fmt.Errorf("encode quiz: %w", err)
	}
	rec := store.LessonRecord{
		ID:        uuid.NewString(),
		Owner:     s.owner,
		Topic:     firstNonBlank(topic, title),
		Title:     title,
		Content:   text,
		Quiz:      string(raw),
		CreatedAt: time.Now(),
	}
	if opts.AssignTo != "" {
		rec.Owner = opts.AssignTo
		rec.IsAssignment = true
	}
	if err := s.lessons.Save(ctx, rec); err != nil {
		return nil, &api.Error{Kind: api.KindServer, Op: "offline save lesson", Err: err}
	}
	s.log.Info("lesson saved", "lesson_id", rec.ID, "questions", len(quiz), "assigned", rec.IsAssignment)

	if rec.IsAssignment {
		return &content.CreateResult{Assigned: true}, nil
	}
	return &content.CreateResult{Lesson: &content.Lesson{
		ID:      rec.ID,
		Topic:   rec.Topic,
		Title:   title,
		Content: text,
		Quiz:    quiz,
	}}, nil
}

// SubmitScore stores the score on the lesson and asks the model for
// feedback.
func (s *Service) SubmitScore(ctx context.Context, r content.ScoreReport) (string, error) {
	if r.LessonID != "" {
		if err := s.lessons.SetScore(ctx, s.owner, r.LessonID, r.Score); err != nil {
			s.log.Warn("store score", "lesson_id", r.LessonID, "error", err)
		}
	}
	text, err := s.gen.Feedback(ctx, r)
	if err != nil {
		return "", generationError("feedback", err)
	}
	return text, nil
}

func (s *Service) AskTutor(ctx context.Context, question, lessonContext string) (string, error) {
	answer, err := s.gen.Tutor(ctx, question, lessonContext)
	if err != nil {
		return "", generationError("tutor", err)
	}
	return answer, nil
}

func (s *Service) GetRole(context.Context) (content.Role, error) {
	return s.role, nil
}

// SearchUsers matches students seen in the local attempt log or assigned
// lessons.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]content.UserSummary, error) {
	if !s.role.Elevated() {
		return nil, forbidden("offline search users")
	}
	attempts, err := s.attempts(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	seen := map[string]bool{}
	var out []content.UserSummary
	for _, a := range attempts {
		if a.Student == "" || seen[a.Student] || !strings.Contains(strings.ToLower(a.Student), query) {
			continue
		}
		seen[a.Student] = true
		out = append(out, content.UserSummary{Email: a.Student, Name: a.Student, Role: content.RoleStudent})
	}
	return out, nil
}

// ListDashboard lists the local attempt log, newest first.
func (s *Service) ListDashboard(ctx context.Context) ([]content.DashboardRow, error) {
	if !s.role.Elevated() {
		return nil, forbidden("offline dashboard")
	}
	attempts, err := s.attempts(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]content.DashboardRow, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, content.DashboardRow{
			Student: a.Student,
			Topic:   a.Topic,
			Score:   a.Score,
			Total:   a.Total,
			Status:  content.StatusCompleted,
			Date:    a.Timestamp,
		})
	}
	return rows, nil
}

func (s *Service) attempts(ctx context.Context) ([]store.AttemptEvent, error) {
	all, err := s.events.QueryAttempts(ctx, store.QueryOpts{})
	if err != nil {
		return nil, &api.Error{Kind: api.KindServer, Op: "offline attempts", Err: err}
	}
	out := all[:0]
	for _, a := range all {
		if a.APIURL == APIURL {
			out = append(out, a)
		}
	}
	return out, nil
}

// User management lives on the backend only.

func (s *Service) ListUsers(context.Context) ([]content.UserSummary, error) {
	return nil, forbidden("offline list users")
}

func (s *Service) ChangeRole(context.Context, string, content.Role) error {
	return forbidden("offline change role")
}

func (s *Service) DeleteUser(context.Context, string) error {
	return forbidden("offline delete user")
}

func forbidden(op string) error {
	return &api.Error{Kind: api.KindAuthorization, Op: op, Detail: "Not available in offline mode."}
}

// generationError maps LLM failures onto the error taxonomy.
func generationError(op string, err error) error {
	if api.KindOf(err) == api.KindNetwork {
		return err
	}
	return &api.Error{Kind: api.KindServer, Op: "offline " + op, Detail: "The lesson generator failed. Please try again.", Err: err}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
