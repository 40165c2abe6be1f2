package session

import (
	"context"
	"strings"

	"github.com/abhisek/edubot/internal/content"
)

// OpenDashboard loads the teacher dashboard. The view switches only once
// the rows arrive, and only if the menu is still showing.
func (c *Controller) OpenDashboard() (Op, error) {
	if c.view != ViewMenu {
		return nil, ErrInvalidTransition
	}
	if !c.sc.CanViewDashboard() {
		return nil, ErrNotPermitted
	}
	if c.dashboardLoading {
		return nil, ErrBusy
	}
	c.dashboardLoading = true
	epoch := c.epoch
	return func(ctx context.Context) Result {
		rows, err := c.svc.ListDashboard(ctx)
		return dashboardResult{epoch: epoch, rows: rows, err: err}
	}, nil
}

func (c *Controller) applyDashboard(r dashboardResult) {
	if r.epoch != c.epoch {
		return
	}
	c.dashboardLoading = false
	if r.err != nil {
		c.fail("load dashboard", r.err)
		return
	}
	c.dashboard = r.rows
	if c.view == ViewMenu && c.sc.CanViewDashboard() {
		c.view = ViewDashboard
	}
}

// OpenAdminPanel shows the admin panel and loads the user list.
func (c *Controller) OpenAdminPanel() (Op, error) {
	if c.view != ViewMenu && c.view != ViewAdmin {
		return nil, ErrInvalidTransition
	}
	if !c.sc.CanAdmin() {
		return nil, ErrNotPermitted
	}
	c.view = ViewAdmin
	return c.loadUsers(), nil
}

func (c *Controller) loadUsers() Op {
	c.usersLoading = true
	epoch := c.epoch
	return func(ctx context.Context) Result {
		users, err := c.svc.ListUsers(ctx)
		return usersResult{epoch: epoch, users: users, err: err}
	}
}

func (c *Controller) applyUsers(r usersResult) {
	if r.epoch != c.epoch {
		return
	}
	c.usersLoading = false
	if r.err != nil {
		c.fail("load users", r.err)
		return
	}
	c.users = r.users
}

// ChangeUserRole sets the role of the user with email.
func (c *Controller) ChangeUserRole(email string, role content.Role) (Op, error) {
	if c.view != ViewAdmin {
		return nil, ErrInvalidTransition
	}
	if !c.sc.CanAdmin() {
		return nil, ErrNotPermitted
	}
	if c.adminBusy {
		return nil, ErrBusy
	}
	if role != content.ParseRole(string(role)) {
		return nil, &content.ValidationError{Fields: []content.FieldError{
			{Field: "new_role", Message: "role must be student, teacher or admin"},
		}}
	}
	c.adminBusy = true
	epoch := c.epoch
	return func(ctx context.Context) Result {
		return roleChangeResult{epoch: epoch, email: email, role: role, err: c.svc.ChangeRole(ctx, email, role)}
	}, nil
}

func (c *Controller) applyRoleChange(r roleChangeResult) []Op {
	if r.epoch != c.epoch {
		return nil
	}
	c.adminBusy = false
	if r.err != nil {
		if c.fail("change role", r.err) {
			return nil
		}
	} else {
		c.log.Info("role changed", "email", r.email, "role", string(r.role))
		c.showInfo("Updated " + r.email + " to " + string(r.role) + ".")
	}
	if c.view != ViewAdmin {
		return nil
	}
	return []Op{c.loadUsers()}
}

// RequestUserDelete asks for confirmation before deleting a user. Admins
// cannot delete their own account.
func (c *Controller) RequestUserDelete(email string) error {
	if c.view != ViewAdmin {
		return ErrInvalidTransition
	}
	if !c.sc.CanAdmin() {
		return ErrNotPermitted
	}
	if strings.EqualFold(strings.TrimSpace(email), c.sc.Email()) {
		return ErrNotPermitted
	}
	c.pendingUserDelete = email
	return nil
}

func (c *Controller) CancelUserDelete() { c.pendingUserDelete = "" }

// ConfirmUserDelete deletes the user awaiting confirmation.
func (c *Controller) ConfirmUserDelete() (Op, error) {
	email := c.pendingUserDelete
	if email == "" || c.view != ViewAdmin {
		return nil, ErrInvalidTransition
	}
	if c.adminBusy {
		return nil, ErrBusy
	}
	c.pendingUserDelete = ""
	c.adminBusy = true
	epoch := c.epoch
	return func(ctx context.Context) Result {
		return userDeleteResult{epoch: epoch, email: email, err: c.svc.DeleteUser(ctx, email)}
	}, nil
}

func (c *Controller) applyUserDelete(r userDeleteResult) []Op {
	if r.epoch != c.epoch {
		return nil
	}
	c.adminBusy = false
	if r.err != nil {
		if c.fail("delete user", r.err) {
			return nil
		}
	} else {
		c.log.Info("user deleted", "email", r.email)
		c.showInfo("Deleted " + r.email + ".")
	}
	if c.view != ViewAdmin {
		return nil
	}
	return []Op{c.loadUsers()}
}

// SearchUsers looks up students for the assign-to field. Only the latest
// search is kept.
func (c *Controller) SearchUsers(query string) (Op, error) {
	if !c.sc.AssignEnabled() {
		return nil, ErrNotPermitted
	}
	c.searchToken++
	token := c.searchToken
	query = strings.TrimSpace(query)
	if query == "" {
		c.searchResults = nil
		return nil, nil
	}
	return func(ctx context.Context) Result {
		users, err := c.svc.SearchUsers(ctx, query)
		return searchResult{token: token, users: users, err: err}
	}, nil
}

func (c *Controller) applySearch(r searchResult) {
	if r.token != c.searchToken {
		return
	}
	if r.err != nil {
		c.fail("search users", r.err)
		return
	}
	c.searchResults = r.users
}

type dashboardResult struct {
	epoch int
	rows  []content.DashboardRow
	err   error
}

type usersResult struct {
	epoch int
	users []content.UserSummary
	err   error
}

type roleChangeResult struct {
	epoch int
	email string
	role  content.Role
	err   error
}

type userDeleteResult struct {
	epoch int
	email string
	err   error
}

type searchResult struct {
	token int
	users []content.UserSummary
	err   error
}

func (dashboardResult) result()  {}
func (usersResult) result()      {}
func (roleChangeResult) result() {}
func (userDeleteResult) result() {}
func (searchResult) result()     {}
