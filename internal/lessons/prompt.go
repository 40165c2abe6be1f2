package lessons

import (
	"fmt"
	"strings"

	"github.com/abhisek/edubot/internal/content"
)

const tutorPersona = `You are EduBot, a patient and encouraging virtual tutor for students and teachers. Explain step by step instead of only giving answers. Use short paragraphs and plain text. If asked about something unrelated to learning, politely say you are here to help with study topics.`

const passageSystemPrompt = tutorPersona + `
You write short reading passages for comprehension practice.`

func buildPassageUserMessage(topic string, difficulty content.Difficulty) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", difficulty)
	b.WriteString(`
Instructions:
1. Write a reading passage of 3-5 paragraphs about the topic, suited to the difficulty.
2. Stick to facts a student can check. No lists, no headings, no markdown.
3. Give the passage a short title (3-8 words).`)
	return b.String()
}

const quizSystemPrompt = `You are an expert teacher writing multiple-choice comprehension quizzes.`

func buildQuizUserMessage(in QuizInput) string {
	var b strings.Builder
	if in.Text != "" {
		text := in.Text
		if r := []rune(text); len(r) > MaxSourceChars {
			text = string(r[:MaxSourceChars])
		}
		fmt.Fprintf(&b, "Base text:\n\"\"\"\n%s\n\"\"\"\n\n", text)
	} else {
		fmt.Fprintf(&b, "Topic: %s\n\n", in.Topic)
	}
	fmt.Fprintf(&b, "Number of questions: %d\n", in.NumQuestions)
	fmt.Fprintf(&b, "Difficulty: %s\n", in.Difficulty)

	source := "the topic"
	if in.Text != "" {
		source = "ONLY the base text above"
	}
	fmt.Fprintf(&b, `
Instructions:
1. Write exactly %d questions based on %s.
2. Every question has four options prefixed "A) ", "B) ", "C) " and "D) ".
3. "answer" is the letter of the single correct option.
4. "explanation" says briefly why that option is correct.
5. Give the quiz a short title.`, in.NumQuestions, source)
	return b.String()
}

const feedbackSystemPrompt = tutorPersona + `
You give brief, specific feedback after a student finishes a quiz.`

func buildFeedbackUserMessage(r content.ScoreReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", r.Topic)
	fmt.Fprintf(&b, "Score: %d out of %d\n", r.Score, r.Total)
	b.WriteString(`
Instructions:
Write 2-3 sentences of feedback. Acknowledge the result honestly, name one thing to review, and end with encouragement.`)
	return b.String()
}

const tutorSystemPrompt = tutorPersona + `
Answer the student's question about the lesson below. If the lesson does not cover it, say so and answer from general knowledge.`

func buildTutorUserMessage(question, lessonContext string) string {
	var b strings.Builder
	if strings.TrimSpace(lessonContext) != "" {
		fmt.Fprintf(&b, "Lesson:\n\"\"\"\n%s\n\"\"\"\n\n", lessonContext)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
