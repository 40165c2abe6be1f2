package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abhisek/edubot/internal/content"
)

// MaxUploadBytes caps files sent to the upload endpoint.
const MaxUploadBytes = 20 << 20

// LoginResult is the credential issued by the backend.
type LoginResult struct {
	Token string
	Role  content.Role
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, creds content.Credentials) (*LoginResult, error) {
	if err := content.Validate(creds); err != nil {
		return nil, err
	}
	cl := call{
		method:    http.MethodPost,
		path:      "/api/auth/login",
		anonymous: true,
		body: formBody(url.Values{
			"username": {strings.TrimSpace(creds.Email)},
			"password": {creds.Password},
		}),
	}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Role        string `json:"role"`
	}
	if err := decodeJSON(cl.op(), raw, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Kind: KindValidation, Op: cl.op(), Detail: "login reply carried no token"}
	}
	return &LoginResult{Token: out.AccessToken, Role: content.ParseRole(out.Role)}, nil
}

// Register creates a student account.
func (c *Client) Register(ctx context.Context, reg content.Registration) error {
	if err := content.Validate(reg); err != nil {
		return err
	}
	b, err := jsonBody(reg)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, call{method: http.MethodPost, path: "/api/auth/register", body: b, anonymous: true})
	return err
}

// Profile is the authenticated user.
type Profile struct {
	Email    string       `json:"email"`
	Username string       `json:"username"`
	Role     content.Role `json:"role"`
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	cl := call{method: http.MethodGet, path: "/api/auth/me"}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := decodeJSON(cl.op(), raw, &p); err != nil {
		return nil, err
	}
	p.Role = content.ParseRole(string(p.Role))
	return &p, nil
}

func (c *Client) GetRole(ctx context.Context) (content.Role, error) {
	p, err := c.Me(ctx)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (c *Client) ListHistory(ctx context.Context) ([]content.HistoryEntry, error) {
	cl := call{method: http.MethodGet, path: "/api/reading/history"}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	entries, err := content.DecodeHistory(raw)
	return entries, wrapDecode(cl.op(), err)
}

func (c *Client) GetHistoryEntry(ctx context.Context, id string) (*content.Lesson, error) {
	cl := call{method: http.MethodGet, path: "/api/reading/history/" + url.PathEscape(id)}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	lesson, err := content.DecodeLesson(raw)
	if err != nil {
		return nil, wrapDecode(cl.op(), err)
	}
	if lesson.ID == "" {
		lesson.ID = id
	}
	return lesson, nil
}

func (c *Client) DeleteHistoryEntry(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: "/api/reading/history/" + url.PathEscape(id)})
	return err
}

// createPayload is the JSON body shared by analyze-text and create-lesson.
type createPayload struct {
	Text         string `json:"text,omitempty"`
	Topic        string `json:"topic,omitempty"`
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"`
	AssignTo     string `json:"assign_to,omitempty"`
}

func (c *Client) CreateFromText(ctx context.Context, text string, opts content.CreateOptions) (*content.CreateResult, error) {
	return c.createJSON(ctx, "/api/reading/analyze-text", createPayload{
		Text:         text,
		NumQuestions: opts.NumQuestions,
		Difficulty:   string(opts.Difficulty),
		AssignTo:     opts.AssignTo,
	})
}

func (c *Client) CreateFromTopic(ctx context.Context, topic string, opts content.CreateOptions) (*content.CreateResult, error) {
	return c.createJSON(ctx, "/api/reading/create-lesson", createPayload{
		Topic:        topic,
		NumQuestions: opts.NumQuestions,
		Difficulty:   string(opts.Difficulty),
		AssignTo:     opts.AssignTo,
	})
}

func (c *Client) createJSON(ctx context.Context, path string, p createPayload) (*content.CreateResult, error) {
	b, err := jsonBody(p)
	if err != nil {
		return nil, err
	}
	cl := call{method: http.MethodPost, path: path, body: b}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	res, err := content.DecodeCreateResult(raw)
	return res, wrapDecode(cl.op(), err)
}

// CreateFromFile uploads the file at path as multipart field "file".
func (c *Client) CreateFromFile(ctx context.Context, path string, opts content.CreateOptions) (*content.CreateResult, error) {
	const op = "POST /api/reading/upload"
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Detail: fmt.Sprintf("cannot open %s", filepath.Base(path)), Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	if info.Size() > MaxUploadBytes {
		return nil, &Error{Kind: KindValidation, Op: op, Detail: fmt.Sprintf("%s is larger than %d MB", filepath.Base(path), MaxUploadBytes>>20)}
	}

	fields := map[string]string{
		"num_questions": strconv.Itoa(opts.NumQuestions),
		"difficulty":    string(opts.Difficulty),
	}
	if opts.AssignTo != "" {
		fields["assign_to"] = opts.AssignTo
	}
	b, err := multipartBody("file", filepath.Base(path), f, fields)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	raw, err := c.do(ctx, call{method: http.MethodPost, path: "/api/reading/upload", body: b})
	if err != nil {
		return nil, err
	}
	res, err := content.DecodeCreateResult(raw)
	return res, wrapDecode(op, err)
}

// SubmitScore reports a finished quiz and returns the feedback text.
func (c *Client) SubmitScore(ctx context.Context, r content.ScoreReport) (string, error) {
	b, err := jsonBody(map[string]any{
		"score":     r.Score,
		"total":     r.Total,
		"topic":     r.Topic,
		"lesson_id": r.LessonID,
	})
	if err != nil {
		return "", err
	}
	cl := call{method: http.MethodPost, path: "/api/reading/feedback-analysis", body: b}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return "", err
	}
	var out struct {
		Feedback string `json:"feedback"`
	}
	if err := decodeJSON(cl.op(), raw, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Feedback), nil
}

// AskTutor asks a question about the lesson text in lessonContext.
func (c *Client) AskTutor(ctx context.Context, question, lessonContext string) (string, error) {
	b, err := jsonBody(map[string]string{"question": question, "context": lessonContext})
	if err != nil {
		return "", err
	}
	cl := call{method: http.MethodPost, path: "/api/chat/ask", body: b}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return "", err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(cl.op(), raw, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Answer), nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]content.UserSummary, error) {
	cl := call{method: http.MethodGet, path: "/api/users/search", query: url.Values{"q": {query}}}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	users, err := content.DecodeUsers(raw)
	return users, wrapDecode(cl.op(), err)
}

func (c *Client) ListDashboard(ctx context.Context) ([]content.DashboardRow, error) {
	cl := call{method: http.MethodGet, path: "/api/teacher/dashboard"}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	rows, err := content.DecodeDashboard(raw)
	return rows, wrapDecode(cl.op(), err)
}

func (c *Client) ListUsers(ctx context.Context) ([]content.UserSummary, error) {
	cl := call{method: http.MethodGet, path: "/api/auth/admin/users"}
	raw, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	users, err := content.DecodeUsers(raw)
	return users, wrapDecode(cl.op(), err)
}

func (c *Client) ChangeRole(ctx context.Context, email string, role content.Role) error {
	b, err := jsonBody(map[string]string{"email": email, "new_role": string(role)})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, call{method: http.MethodPut, path: "/api/auth/admin/change-role", body: b})
	return err
}

func (c *Client) DeleteUser(ctx context.Context, email string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: "/api/auth/admin/users/" + url.PathEscape(email)})
	return err
}
