package classroom

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/theme"
)

func (s *ClassroomScreen) goHome() tea.Cmd {
	return s.run(s.ctl.GoHome()...)
}

func (s *ClassroomScreen) updateLesson(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if s.scroll > 0 {
			s.scroll--
		}
	case "down", "j":
		s.scroll++
	case "pgup":
		s.scroll = max(0, s.scroll-10)
	case "pgdown", "space", " ":
		s.scroll += 10
	case "q", "enter":
		if err := s.ctl.StartQuiz(); err != nil {
			s.ctl.Notify(err)
		}
	case "t":
		return s.tutor.open()
	case "esc", "h":
		return s.goHome()
	}
	return nil
}

// syncQuiz rebuilds the choice widget when the question changes and mirrors
// the locked answer into it.
func (s *ClassroomScreen) syncQuiz() {
	a := s.ctl.Attempt()
	if a == nil {
		s.quizOf, s.quizIndex = nil, -1
		return
	}
	q := a.Question()
	if q == nil {
		return
	}
	if a != s.quizOf || a.Index() != s.quizIndex {
		bodies := make([]string, len(q.Options))
		for i := range q.Options {
			bodies[i] = q.Body(i)
		}
		s.quiz = components.NewMultiChoice(q.Text, q.Letters(), bodies, q.CorrectIndex())
		s.quizOf, s.quizIndex = a, a.Index()
	}
	if chosen, locked := a.Selected(); locked {
		s.quiz.Submitted = true
		for i, o := range q.Options {
			if o == chosen {
				s.quiz.ChosenIndex, s.quiz.Selected = i, i
			}
		}
	}
}

func (s *ClassroomScreen) updateQuiz(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return s.goHome()
	case "t":
		return s.tutor.open()
	}

	a := s.ctl.Attempt()
	if a == nil {
		return nil
	}
	if a.Locked() {
		if k := msg.String(); k == "enter" || k == "n" || k == "right" {
			ops, err := s.ctl.Advance()
			if err != nil {
				s.ctl.Notify(err)
				return nil
			}
			return s.run(ops...)
		}
		return nil
	}

	s.quiz, _ = s.quiz.Update(msg)
	if s.quiz.Submitted {
		q := a.Question()
		if q == nil || s.quiz.ChosenIndex < 0 || s.quiz.ChosenIndex >= len(q.Options) {
			return nil
		}
		if !s.ctl.SelectAnswer(q.Options[s.quiz.ChosenIndex]) {
			s.quiz.Submitted, s.quiz.ChosenIndex = false, -1
		}
	}
	return nil
}

func (s *ClassroomScreen) updateScore(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc", "h":
		return s.goHome()
	case "t":
		return s.tutor.open()
	}
	return nil
}

func (s *ClassroomScreen) viewLesson(cw, height int) string {
	l := s.ctl.Lesson()
	if l == nil {
		return ""
	}
	body := lipgloss.NewStyle().Width(cw - 6).Render(l.Content)
	lines := strings.Split(body, "\n")

	visible := max(height-6, 3)
	if s.scroll > len(lines)-visible {
		s.scroll = max(len(lines)-visible, 0)
	}
	end := min(s.scroll+visible, len(lines))

	var b strings.Builder
	b.WriteString(theme.Title.Render(l.Title) + "\n")
	if l.Topic != "" && l.Topic != l.Title {
		b.WriteString(theme.Subtitle.Render(l.Topic) + "\n")
	}
	b.WriteString("\n" + strings.Join(lines[s.scroll:end], "\n"))
	if end < len(lines) {
		b.WriteString("\n" + theme.Hint.Render(fmt.Sprintf("… %d more lines", len(lines)-end)))
	}
	b.WriteString("\n\n" + theme.Hint.Render(fmt.Sprintf("%d questions await. Press q when you are ready.", len(l.Quiz))))
	return components.Card(b.String(), cw)
}

func (s *ClassroomScreen) viewQuiz(cw int) string {
	a := s.ctl.Attempt()
	if a == nil || a.Question() == nil {
		return ""
	}
	progress := components.NewProgressBar(
		fmt.Sprintf("Question %d of %d", a.Index()+1, a.Total()),
		a.Index(), a.Total(), false, cw-6,
	)

	parts := []string{progress.View(), "", s.quiz.View()}
	if a.Locked() {
		q := a.Question()
		verdict := theme.Correct.Render("Correct!")
		if !a.Correct() {
			verdict = theme.Incorrect.Render("Not quite.")
		}
		parts = append(parts, verdict)
		if q.Explanation != "" {
			parts = append(parts, lipgloss.NewStyle().Width(cw-6).Render(theme.Hint.Render(q.Explanation)))
		}
	}
	return components.Card(strings.Join(parts, "\n"), cw)
}

func (s *ClassroomScreen) viewScore(cw int) string {
	a := s.ctl.Attempt()
	if a == nil {
		return ""
	}
	heading := "Quiz complete"
	if a.Score() == a.Total() {
		heading = "Perfect score!"
	}
	bar := components.NewProgressBar("Score", a.Score(), a.Total(), true, cw-6)

	feedback, pending := s.ctl.Feedback()
	fb := lipgloss.NewStyle().Width(cw - 6).Render(theme.Body.Render(feedback))
	if pending {
		fb = s.spinner.View() + " " + theme.Hint.Render(feedback)
	}

	parts := []string{
		theme.Title.Render(heading),
		"",
		lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).Render(scoreLine(a.Score(), a.Total())),
		bar.View(),
		"",
		components.Section("EduBot says", fb),
	}
	return components.Card(strings.Join(parts, "\n"), cw)
}

// lessonView renders the lesson, quiz or score body with the tutor below.
func (s *ClassroomScreen) lessonView(cw, height int) string {
	tutorHeight := 0
	if s.tutor.visible {
		tutorHeight = min(12, height/2)
	}

	var body string
	switch s.ctl.View() {
	case session.ViewLesson:
		body = s.viewLesson(cw, height-tutorHeight)
	case session.ViewQuiz:
		body = s.viewQuiz(cw)
	case session.ViewScore:
		body = s.viewScore(cw)
	}
	if tutorHeight == 0 {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, s.viewTutor(cw, tutorHeight))
}
