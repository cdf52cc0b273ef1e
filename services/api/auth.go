package api

import (
	"context"

	"novelchat/apperrors"
)

// Login authenticates and returns the user with its token.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var user User
	if err := c.postJSON(ctx, "/auth/login", LoginRequest{Username: username, Password: password}, &user); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeAPI) && !isTransportFailure(err) {
			return nil, apperrors.NewInvalidCredentials().WithInternal(err)
		}
		return nil, err
	}
	if user.ID == 0 {
		return nil, apperrors.NewAPIError("/auth/login", codeOK, "login response carries no user id")
	}
	return &user, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Nickname == "" {
		req.Nickname = req.Username
	}

	var user User
	if err := c.postJSON(ctx, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
