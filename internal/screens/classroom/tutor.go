package classroom

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/theme"
)

// tutorPanel is the question box under an open lesson.
type tutorPanel struct {
	input   components.TextInput
	visible bool
}

func newTutorPanel() tutorPanel {
	return tutorPanel{input: components.NewTextInput("Ask EduBot", "What does evaporation mean?", 500)}
}

func (p *tutorPanel) open() tea.Cmd {
	p.visible = true
	return p.input.Focus()
}

func (p *tutorPanel) close() {
	p.visible = false
	p.input.Blur()
	p.input.SetValue("")
}

func (p *tutorPanel) focused() bool {
	return p.visible && p.input.Focused()
}

func (p *tutorPanel) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (s *ClassroomScreen) updateTutor(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		s.tutor.close()
		return nil
	case "tab":
		// Keep the dialogue on screen but give keys back to the lesson.
		s.tutor.input.Blur()
		return nil
	case "enter":
		op, err := s.ctl.AskTutor(s.tutor.input.Value())
		if err != nil {
			s.ctl.Notify(err)
			return nil
		}
		s.tutor.input.SetValue("")
		return s.run(op)
	}
	return s.tutor.update(msg)
}

func (s *ClassroomScreen) viewTutor(cw, height int) string {
	wrap := lipgloss.NewStyle().Width(cw - 6)
	var lines []string
	for _, m := range s.ctl.Dialogue() {
		who := theme.UserBubble.Render("You: ")
		if m.Sender == session.SenderBot {
			who = theme.BotBubble.Render("EduBot: ")
		}
		lines = append(lines, strings.Split(wrap.Render(who+m.Text), "\n")...)
	}
	if s.ctl.TutorBusy() {
		lines = append(lines, s.spinner.View()+" "+theme.Hint.Render("EduBot is thinking..."))
	}

	room := max(height-5, 1)
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	if len(lines) == 0 {
		lines = []string{theme.Hint.Render("Ask anything about this lesson.")}
	}

	input := s.tutor.input.View()
	if !s.tutor.focused() {
		input = theme.Hint.Render("t to type a question · esc to close")
	}
	return theme.Panel.Width(cw - 2).Render(strings.Join(lines, "\n") + "\n" + input)
}
