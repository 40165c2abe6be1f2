package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/edubot/internal/ui/theme"
)

// MultiChoice is a multiple-choice selector. Once an option is chosen it
// stays chosen; the owner decides whether the choice is locked.
type MultiChoice struct {
	Question string
	// Options are the option bodies, Letters their labels.
	Options      []string
	Letters      []string
	CorrectIndex int
	Selected     int
	Submitted    bool
	ChosenIndex  int
}

// NewMultiChoice creates a new multiple-choice component.
func NewMultiChoice(question string, letters, options []string, correctIndex int) MultiChoice {
	return MultiChoice{
		Question:     question,
		Options:      options,
		Letters:      letters,
		CorrectIndex: correctIndex,
		ChosenIndex:  -1,
	}
}

// Update handles keyboard navigation and selection. An option letter
// chooses that option directly.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Submitted {
		return m, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter":
		m.Submitted = true
		m.ChosenIndex = m.Selected
	default:
		for i, l := range m.Letters {
			if strings.EqualFold(l, key) {
				m.Selected = i
				m.Submitted = true
				m.ChosenIndex = i
				break
			}
		}
	}

	return m, nil
}

// View renders the multiple-choice component.
func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(theme.Body.Bold(true).Render(m.Question) + "\n\n")

	for i, opt := range m.Options {
		label := ""
		if i < len(m.Letters) {
			label = m.Letters[i]
		}
		prefix := "  "
		if i == m.Selected && !m.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, label, opt)

		switch {
		case m.Submitted && i == m.CorrectIndex:
			b.WriteString(theme.Correct.Render(line + "  ✓"))
		case m.Submitted && i == m.ChosenIndex:
			b.WriteString(theme.Incorrect.Render(line + "  ✗"))
		case m.Submitted:
			b.WriteString(theme.Hint.Render(line))
		case i == m.Selected:
			b.WriteString(theme.Selected.Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// IsCorrect returns true if the user chose the correct answer.
func (m MultiChoice) IsCorrect() bool {
	return m.Submitted && m.ChosenIndex == m.CorrectIndex
}
