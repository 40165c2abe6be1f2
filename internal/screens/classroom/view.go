package classroom

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/theme"
)

func (s *ClassroomScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var top []string
	if b, ok := s.ctl.Banner(); ok {
		top = append(top, components.Banner(b.Text+"  (x to dismiss)", b.Kind == session.BannerError, width))
	}
	switch {
	case s.ctl.Busy():
		top = append(top, s.spinner.View()+" "+theme.Hint.Render("EduBot is preparing your lesson..."))
	case s.ctl.Deleting():
		top = append(top, s.spinner.View()+" "+theme.Hint.Render("Deleting..."))
	case s.ctl.DashboardLoading():
		top = append(top, s.spinner.View()+" "+theme.Hint.Render("Loading the class dashboard..."))
	}
	header := strings.Join(top, "\n")
	room := max(height-lipgloss.Height(header), 1)
	if header == "" {
		room = height
	}

	var body string
	switch {
	case s.form != nil:
		body = s.viewForm(cw)
	default:
		switch s.ctl.View() {
		case session.ViewMenu:
			body = s.viewMenu(cw, room)
		case session.ViewLesson, session.ViewQuiz, session.ViewScore:
			body = s.lessonView(cw, room)
		case session.ViewDashboard:
			body = s.viewDashboard(cw, room)
		case session.ViewAdmin:
			body = s.viewAdmin(cw)
		}
	}

	content := lipgloss.Place(width, room, lipgloss.Center, lipgloss.Top, body)
	content = lipgloss.NewStyle().MaxHeight(room).Render(content)
	if header == "" {
		return content
	}
	return header + "\n" + content
}

func (s *ClassroomScreen) viewMenu(cw, height int) string {
	sc := s.ctl.Session()
	greeting := "Hi"
	if name := sc.DisplayName(); name != "" {
		greeting += ", " + name
	}
	lines := []string{theme.Title.Render(greeting + "! What shall we learn today?")}
	if sc.AssignEnabled() {
		lines = append(lines, theme.Subtitle.Render("Teacher mode: new lessons can be assigned to a student."))
	}
	lines = append(lines, "")

	items := strings.Split(strings.TrimRight(s.menu.View(), "\n"), "\n")
	room := max(height-10, 3)
	if len(items) > room {
		start := min(max(s.menu.Selected-room/2, 0), len(items)-room)
		items = items[start : start+room]
	}
	lines = append(lines, items...)

	if id := s.ctl.PendingDelete(); id != "" {
		topic := id
		for _, e := range s.ctl.History() {
			if e.ID == id {
				topic = historyLabel(e)
			}
		}
		lines = append(lines, "", components.ConfirmBar("Delete \""+topic+"\"?", true))
	}
	return components.Card(strings.Join(lines, "\n"), cw)
}
