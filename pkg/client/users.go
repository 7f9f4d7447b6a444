package client

import (
	"context"
	"net/http"
)

// User is an account as reported by the Workbench API.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type UserService struct {
	client *Client
}

func (c *Client) Users() *UserService {
	return &UserService{client: c}
}

// Me returns the account that owns the bearer token.
func (s *UserService) Me(ctx context.Context) (*User, error) {
	var user User
	if err := s.client.do(ctx, http.MethodGet, "api/v1/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
