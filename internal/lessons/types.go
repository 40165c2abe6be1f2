package lessons

import "github.com/abhisek/edubot/internal/content"

// Passage is a generated reading text for a topic.
type Passage struct {
	Title   string
	Content string
}

// Quiz is a generated multiple-choice quiz.
type Quiz struct {
	Title     string
	Questions []content.Question
}

// QuizInput describes the quiz to write.
type QuizInput struct {
	// Text is the passage the questions are about. Empty for a topic quiz.
	Text         string
	Topic        string
	NumQuestions int
	Difficulty   content.Difficulty
}
