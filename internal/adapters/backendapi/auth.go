package backendapi

import (
	"context"
	"errors"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/ports"
)

var _ ports.SessionAPI = (*Client)(nil)

var (
	errMissingToken = errors.New("login response carried no token")
	errMissingUser  = errors.New("session response carried no user")
)

// Login exchanges email and password for a credential. It never sends a credential.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error) {
	var res struct {
		Token string               `json:"token"`
		User  *domainauth.Identity `json:"user"`
	}
	if err := c.Do(ctx, PostJSON(c.loginPath, in).Public(), &res); err != nil {
		return ports.LoginResult{}, err
	}
	if res.Token == "" {
		return ports.LoginResult{}, errMissingToken
	}
	if res.User == nil {
		return ports.LoginResult{}, errMissingUser
	}
	return ports.LoginResult{Token: res.Token, User: *res.User}, nil
}

// Me returns the identity behind credential.
func (c *Client) Me(ctx context.Context, credential string) (domainauth.Identity, error) {
	if credential == "" {
		return domainauth.Identity{}, domainauth.ErrNoCredential
	}
	var res struct {
		User *domainauth.Identity `json:"user"`
	}
	if err := c.Do(ctx, Get(c.mePath).WithCredential(credential), &res); err != nil {
		return domainauth.Identity{}, err
	}
	if res.User == nil {
		return domainauth.Identity{}, errMissingUser
	}
	return *res.User, nil
}

// Logout asks the backend to revoke credential. The answer body is ignored.
func (c *Client) Logout(ctx context.Context, credential string) error {
	return c.Do(ctx, PostJSON(c.logoutPath, struct{}{}).WithCredential(credential), nil)
}
