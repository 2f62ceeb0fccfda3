package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoToken is returned when a login succeeds without issuing a token.
var ErrNoToken = errors.New("login response carried no token")

// Admin describes the logged-in administrator.
type Admin struct {
	ID    string
	Name  string
	Email string
	Phone string
	City  string
}

// LoginResult is a successful admin login.
type LoginResult struct {
	Token string
	Admin Admin
}

type rawUser struct {
	ID    flexString `json:"id"`
	Name  flexString `json:"name"`
	Email flexString `json:"email"`
	Phone flexString `json:"phone"`
	City  flexString `json:"city"`
}

func (r rawUser) toAdmin() Admin {
	return Admin{ID: r.ID.String(), Name: r.Name.String(), Email: r.Email.String(), Phone: r.Phone.String(), City: r.City.String()}
}

// Login exchanges admin credentials for a bearer token.
// PRE: email and password are non-empty
// POST: returns ErrNoToken when the backend reports success without a token
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp struct {
		Token flexString `json:"token"`
		User  rawUser    `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, Anonymous, http.MethodPost, "/admin", nil, body, &resp); err != nil {
		return LoginResult{}, err
	}
	if resp.Token == "" {
		return LoginResult{}, fmt.Errorf("POST /admin: %w", ErrNoToken)
	}
	admin := resp.User.toAdmin()
	if admin.Email == "" {
		admin.Email = email
	}
	return LoginResult{Token: resp.Token.String(), Admin: admin}, nil
}

// Logout revokes the token held in rc.
func (c *Client) Logout(ctx context.Context, rc RequestContext) error {
	return c.do(ctx, rc, http.MethodPost, "/auth/logout", nil, struct{}{}, nil)
}

// Profile returns the administrator the token belongs to.
func (c *Client) Profile(ctx context.Context, rc RequestContext) (Admin, error) {
	var resp struct {
		Data rawUser `json:"data"`
	}
	if err := c.do(ctx, rc, http.MethodGet, "/auth/my-profile", nil, nil, &resp); err != nil {
		return Admin{}, err
	}
	return resp.Data.toAdmin(), nil
}
