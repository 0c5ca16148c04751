package formapi

import (
	"context"
	"net/http"
)

type AuthClient struct {
	client *Client
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges operator credentials for a bearer token pair
func (a *AuthClient) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var tokens TokenPair
	if err := a.client.call(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Me returns the operator the client's token belongs to
func (a *AuthClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.call(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
