package classroom

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/ui/components"
)

// syncMenu rebuilds the home menu: creation actions, role-gated tools,
// then the history list.
func (s *ClassroomScreen) syncMenu() {
	sc := s.ctl.Session()
	items := []components.MenuItem{
		{Label: "Learn a topic", Detail: "reading passage + quiz", Action: s.openForm(content.SourceTopic)},
		{Label: "Quiz me on a text", Detail: "paste your own passage", Action: s.openForm(content.SourceText)},
		{Label: "Quiz me on a file", Detail: "upload a document", Action: s.openForm(content.SourceFile)},
	}
	if sc.CanViewDashboard() {
		items = append(items, components.MenuItem{Label: "Class dashboard", Action: func() tea.Cmd {
			return s.do(s.ctl.OpenDashboard())
		}})
	}
	if sc.CanAdmin() {
		items = append(items, components.MenuItem{Label: "User administration", Action: func() tea.Cmd {
			return s.do(s.ctl.OpenAdminPanel())
		}})
	}
	if sc.Role().Elevated() {
		next := session.ModeTeacher
		if sc.Mode() == session.ModeTeacher {
			next = session.ModeStudent
		}
		items = append(items, components.MenuItem{
			Label: fmt.Sprintf("Switch to %s mode", next),
			Action: func() tea.Cmd {
				if err := s.ctl.SetMode(next); err != nil {
					s.ctl.Notify(err)
				}
				return nil
			},
		})
	}
	if !s.opts.Offline {
		items = append(items, components.MenuItem{Label: "Sign out", Action: s.logout})
	}

	heading := "── History ──"
	if s.ctl.HistoryLoading() {
		heading += " (refreshing)"
	}
	items = append(items, components.MenuItem{Label: heading, Disabled: true})
	s.historyStart = len(items)

	history := s.ctl.History()
	shown := history
	if s.opts.HistoryLimit > 0 && len(shown) > s.opts.HistoryLimit {
		shown = shown[:s.opts.HistoryLimit]
	}
	for _, e := range shown {
		id := e.ID
		items = append(items, components.MenuItem{
			Label:  historyLabel(e),
			Detail: historyDetail(e),
			Action: func() tea.Cmd { return s.do(s.ctl.LoadEntry(id)) },
		})
	}
	switch {
	case len(history) == 0 && !s.ctl.HistoryLoading():
		items = append(items, components.MenuItem{Label: "No lessons yet", Disabled: true})
	case len(shown) < len(history):
		items = append(items, components.MenuItem{
			Label:    fmt.Sprintf("… %d older", len(history)-len(shown)),
			Disabled: true,
		})
	}
	s.menu.SetItems(items)
}

func historyLabel(e content.HistoryEntry) string {
	topic := strings.TrimSpace(e.Topic)
	if topic == "" {
		topic = "Untitled"
	}
	if e.IsAssignment {
		return "📌 " + topic
	}
	return topic
}

func historyDetail(e content.HistoryEntry) string {
	parts := make([]string, 0, 3)
	if e.IsAssignment {
		parts = append(parts, "assigned")
	}
	if e.Score != nil {
		parts = append(parts, fmt.Sprintf("score %d", *e.Score))
	} else {
		parts = append(parts, string(e.Status))
	}
	if !e.CreatedAt.IsZero() {
		parts = append(parts, e.CreatedAt.Local().Format("Jan 2"))
	}
	return strings.Join(parts, " · ")
}

// selectedEntry returns the history entry under the cursor, if any.
func (s *ClassroomScreen) selectedEntry() (content.HistoryEntry, bool) {
	history := s.ctl.History()
	idx := s.menu.Selected - s.historyStart
	if idx < 0 || idx >= len(history) {
		return content.HistoryEntry{}, false
	}
	return history[idx], true
}

func (s *ClassroomScreen) updateMenu(msg tea.KeyMsg) tea.Cmd {
	if s.ctl.PendingDelete() != "" {
		switch msg.String() {
		case "y", "Y":
			return s.do(s.ctl.ConfirmDelete())
		case "n", "N", "esc":
			s.ctl.CancelDelete()
		}
		return nil
	}

	switch msg.String() {
	case "d", "delete":
		if e, ok := s.selectedEntry(); ok {
			if err := s.ctl.RequestDelete(e.ID); err != nil {
				s.ctl.Notify(err)
			}
		}
		return nil
	case "r":
		return s.run(s.ctl.RefreshHistory())
	}

	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return cmd
}
