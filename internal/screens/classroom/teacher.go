package classroom

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/theme"
)

var roleKeys = map[string]content.Role{
	"s": content.RoleStudent,
	"t": content.RoleTeacher,
	"a": content.RoleAdmin,
}

func (s *ClassroomScreen) updateDashboard(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if s.rowStart > 0 {
			s.rowStart--
		}
	case "down", "j":
		if s.rowStart < len(s.ctl.Dashboard())-1 {
			s.rowStart++
		}
	case "esc", "h":
		s.rowStart = 0
		return s.goHome()
	}
	return nil
}

func (s *ClassroomScreen) viewDashboard(cw, height int) string {
	rows := s.ctl.Dashboard()
	if len(rows) == 0 {
		return components.Card(theme.Hint.Render("No quiz attempts from your students yet."), cw)
	}

	var scored, possible int
	for _, r := range rows {
		scored += r.Score
		possible += r.Total
	}
	summary := fmt.Sprintf("%d attempts", len(rows))
	if possible > 0 {
		summary += fmt.Sprintf(" · class average %d%%", scored*100/possible)
	}

	visible := max(height-8, 1)
	start := min(s.rowStart, max(len(rows)-visible, 0))
	end := min(start+visible, len(rows))

	data := make([][]string, 0, end-start)
	for _, r := range rows[start:end] {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Local().Format("2006-01-02")
		}
		data = append(data, []string{r.Student, r.Topic, scoreLine(r.Score, r.Total), string(r.Status), date})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers("Student", "Topic", "Score", "Status", "Date").
		Rows(data...).
		Width(cw).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.Label.Padding(0, 1)
			}
			return theme.Body.Padding(0, 1)
		})

	return theme.Subtitle.Render(summary) + "\n" + t.String()
}

// syncAdmin mirrors the user list into the admin menu.
func (s *ClassroomScreen) syncAdmin() {
	users := s.ctl.Users()
	items := make([]components.MenuItem, 0, len(users))
	for _, u := range users {
		detail := []string{string(u.Role)}
		if u.Grade != "" {
			detail = append(detail, "grade "+u.Grade)
		}
		if u.Section != "" {
			detail = append(detail, "section "+u.Section)
		}
		label := u.Email
		if u.Name != "" {
			label = fmt.Sprintf("%s <%s>", u.Name, u.Email)
		}
		items = append(items, components.MenuItem{Label: label, Detail: strings.Join(detail, " · ")})
	}
	s.admin.SetItems(items)
}

func (s *ClassroomScreen) selectedUser() (content.UserSummary, bool) {
	users := s.ctl.Users()
	if s.admin.Selected < 0 || s.admin.Selected >= len(users) {
		return content.UserSummary{}, false
	}
	return users[s.admin.Selected], true
}

func (s *ClassroomScreen) updateAdmin(msg tea.KeyMsg) tea.Cmd {
	if s.ctl.PendingUserDelete() != "" {
		switch msg.String() {
		case "y", "Y":
			return s.do(s.ctl.ConfirmUserDelete())
		case "n", "N", "esc":
			s.ctl.CancelUserDelete()
		}
		return nil
	}

	key := msg.String()
	if role, ok := roleKeys[key]; ok {
		if u, ok := s.selectedUser(); ok {
			return s.do(s.ctl.ChangeUserRole(u.Email, role))
		}
		return nil
	}
	switch key {
	case "d", "delete":
		if u, ok := s.selectedUser(); ok {
			if err := s.ctl.RequestUserDelete(u.Email); err != nil {
				s.ctl.Notify(err)
			}
		}
		return nil
	case "r":
		return s.do(s.ctl.OpenAdminPanel())
	case "esc", "h":
		return s.goHome()
	}

	var cmd tea.Cmd
	s.admin, cmd = s.admin.Update(msg)
	return cmd
}

func (s *ClassroomScreen) viewAdmin(cw int) string {
	var body string
	switch {
	case s.ctl.UsersLoading() && len(s.ctl.Users()) == 0:
		body = s.spinner.View() + " " + theme.Hint.Render("Loading users...")
	case len(s.ctl.Users()) == 0:
		body = theme.Hint.Render("No users found.")
	default:
		body = s.admin.View()
	}
	if email := s.ctl.PendingUserDelete(); email != "" {
		body += "\n" + components.ConfirmBar(fmt.Sprintf("Delete %s and all their lessons?", email), true)
	}
	return components.Card(theme.Title.Render("Users")+"\n\n"+body, cw)
}
