package lessons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/llm"
)

// ErrNoQuestions means the model produced no usable question.
var ErrNoQuestions = errors.New("generated quiz has no valid questions")

// Generator writes lessons, quizzes, feedback and tutor replies with an LLM.
type Generator struct {
	provider llm.Provider
	cfg      Config
}

// NewGenerator creates a generator on top of provider.
func NewGenerator(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, cfg: cfg}
}

type passageOutput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Passage writes a reading passage about topic.
func (g *Generator) Passage(ctx context.Context, topic string, difficulty content.Difficulty) (*Passage, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeLesson)

	req := llm.Prompt(passageSystemPrompt, buildPassageUserMessage(topic, difficulty), PassageSchema, g.cfg.PassageMaxTokens)
	req.Temperature = g.cfg.Temperature

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("passage generation: %w", err)
	}
	var out passageOutput
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse passage response: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return nil, fmt.Errorf("passage generation: %w", &llm.ErrInvalidResponse{Content: resp.Content, Err: errors.New("empty passage")})
	}
	title := strings.TrimSpace(out.Title)
	if title == "" {
		title = topic
	}
	return &Passage{Title: title, Content: strings.TrimSpace(out.Content)}, nil
}

type quizOutput struct {
	Title     string           `json:"title"`
	Questions []questionOutput `json:"questions"`
}

type questionOutput struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Quiz writes a multiple-choice quiz. Questions whose answer does not match
// exactly one option are dropped; extra questions are trimmed.
func (g *Generator) Quiz(ctx context.Context, in QuizInput) (*Quiz, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuiz)
	if in.NumQuestions <= 0 {
		in.NumQuestions = content.DefaultNumQuestions
	}
	if in.Difficulty == "" {
		in.Difficulty = content.DefaultDifficulty
	}

	req := llm.Prompt(quizSystemPrompt, buildQuizUserMessage(in), QuizSchema, g.cfg.QuizMaxTokens)
	req.Temperature = g.cfg.Temperature

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("quiz generation: %w", err)
	}
	var out quizOutput
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse quiz response: %w", err)
	}

	quiz := &Quiz{Title: strings.TrimSpace(out.Title)}
	for _, q := range out.Questions {
		nq, err := content.NormalizeQuestion(q.Question, q.Options, q.Answer, q.Explanation)
		if err != nil {
			continue
		}
		quiz.Questions = append(quiz.Questions, nq)
		if len(quiz.Questions) == in.NumQuestions {
			break
		}
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if quiz.Title == "" {
		quiz.Title = in.Topic
	}
	return quiz, nil
}

// Feedback comments on a finished quiz.
func (g *Generator) Feedback(ctx context.Context, r content.ScoreReport) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeFeedback)
	return g.text(ctx, "feedback", feedbackSystemPrompt, buildFeedbackUserMessage(r), g.cfg.FeedbackMaxTokens)
}

// Tutor answers question with lessonContext as background.
func (g *Generator) Tutor(ctx context.Context, question, lessonContext string) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeTutor)
	return g.text(ctx, "tutor", tutorSystemPrompt, buildTutorUserMessage(question, lessonContext), g.cfg.TutorMaxTokens)
}

func (g *Generator) text(ctx context.Context, what, system, user string, maxTokens int) (string, error) {
	req := llm.Prompt(system, user, nil, maxTokens)
	req.Temperature = g.cfg.Temperature

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s generation: %w", what, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%s generation: %w", what, &llm.ErrInvalidResponse{Content: resp.Content, Err: errors.New("empty reply")})
	}
	return text, nil
}
