package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dukerupert/smartshop/internal/model"
)

type Credentials struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"user_type"`
}

type Registration struct {
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Password             string     `json:"password"`
	PasswordConfirmation string     `json:"password_confirmation"`
	Role                 model.Role `json:"user_type"`
}

// AuthResult is a freshly issued backend token. Identity is partial when the
// backend does not echo the account; callers follow up with Me.
type AuthResult struct {
	Token    string
	Identity model.Identity
}

type authResponse struct {
	Token       string          `json:"token"`
	AccessToken string          `json:"access_token"`
	Type        model.Role      `json:"type"`
	User        *model.Identity `json:"user"`
}

func (r authResponse) result(fallback model.Role) (*AuthResult, error) {
	tok := r.Token
	if tok == "" {
		tok = r.AccessToken
	}
	if tok == "" {
		return nil, errors.New("auth response carried no token")
	}
	res := &AuthResult{Token: tok}
	if r.User != nil {
		res.Identity = *r.User
	}
	switch {
	case r.Type != "":
		res.Identity.Role = r.Type
	case res.Identity.Role == "":
		res.Identity.Role = fallback
	}
	return res, nil
}

func (c *Client) Login(ctx context.Context, cr Credentials) (*AuthResult, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, "/login", cr)
	if err != nil {
		return nil, err
	}
	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode login: %w", err)
	}
	return resp.result(cr.Role)
}

func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, "/register", reg)
	if err != nil {
		return nil, err
	}
	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode register: %w", err)
	}
	res, err := resp.result(reg.Role)
	if err != nil {
		return nil, err
	}
	if res.Identity.Name == "" {
		res.Identity.Name = reg.Name
		res.Identity.Email = reg.Email
	}
	return res, nil
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*model.Identity, error) {
	data, err := c.get(ctx, "/user", nil)
	if err != nil {
		return nil, err
	}
	id, err := decodeEntity[model.Identity](data, "user")
	if err != nil {
		return nil, err
	}
	if _, err := model.ParseRole(string(id.Role)); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return id, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/logout", nil)
	return err
}

// VerifyEmail follows a signed verification link. Only links pointing at the
// backend host are followed.
func (c *Client) VerifyEmail(ctx context.Context, signedURL string) error {
	u, err := url.Parse(signedURL)
	if err != nil {
		return fmt.Errorf("parse signed url: %w", err)
	}
	if u.Host != c.baseURL.Host || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("signed url host %q does not match backend", u.Host)
	}
	_, _, err = c.send(ctx, request{method: http.MethodGet, path: u.Path, absolute: u})
	return err
}

func (c *Client) ResendVerification(ctx context.Context) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/email/verification-notification", nil)
	return err
}
