package content

import "time"

// Role is the server-side authority level of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a wire value to a Role. Unknown values fall back to student,
// the least privileged role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleTeacher, RoleAdmin:
		return Role(s)
	default:
		return RoleStudent
	}
}

// Elevated reports whether the role grants teacher capabilities.
func (r Role) Elevated() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Status is the completion state of a history entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Difficulty controls how hard generated questions are.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Lesson is a reading passage plus its quiz. Content is empty for
// quiz-only lessons.
type Lesson struct {
	ID      string
	Topic   string
	Title   string
	Content string
	Quiz    []Question
}

// QuizOnly reports whether the lesson has no reading passage.
func (l *Lesson) QuizOnly() bool {
	return l.Content == ""
}

// Question is one multiple-choice item. Answer holds the canonical letter
// of the correct option (see LetterOf).
type Question struct {
	Text        string
	Options     []string
	Answer      string
	Explanation string
}

// HistoryEntry is the lightweight summary of a past or assigned lesson.
type HistoryEntry struct {
	ID           string
	Topic        string
	IsAssignment bool
	Score        *int
	Status       Status
	CreatedAt    time.Time
}

// Source selects which creation flow a CreateRequest uses.
type Source string

const (
	SourceText  Source = "text"
	SourceTopic Source = "topic"
	SourceFile  Source = "file"
)

// CreateOptions are shared by all three creation flows.
type CreateOptions struct {
	NumQuestions int        `json:"num_questions" validate:"min=1,max=20"`
	Difficulty   Difficulty `json:"difficulty" validate:"oneof=easy medium hard"`
	AssignTo     string     `json:"assign_to,omitempty" validate:"omitempty,email"`
}

// CreateRequest describes a new lesson to generate.
type CreateRequest struct {
	Source   Source        `json:"source" validate:"required,oneof=text topic file"`
	Text     string        `json:"text,omitempty" validate:"required_if=Source text"`
	Topic    string        `json:"topic,omitempty" validate:"required_if=Source topic,max=200"`
	FilePath string        `json:"file_path,omitempty" validate:"required_if=Source file"`
	Options  CreateOptions `json:"options"`
}

// CreateResult is what a creation flow returns: either a lesson to open, or
// an acknowledgement that the work was assigned to a student.
type CreateResult struct {
	Lesson   *Lesson
	Assigned bool
}

// ScoreReport is sent when a quiz is finished to obtain feedback.
type ScoreReport struct {
	Score    int
	Total    int
	Topic    string
	LessonID string
}

// DashboardRow is one line of the teacher dashboard.
type DashboardRow struct {
	Student string
	Topic   string
	Score   int
	Total   int
	Status  Status
	Date    time.Time
}

// UserSummary describes a user as returned by search and admin listings.
type UserSummary struct {
	ID      string
	Name    string
	Email   string
	Role    Role
	Grade   string
	Section string
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
}

// Registration is the sign-up form.
type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	Username string `json:"username" validate:"notblank,max=50"`
}
