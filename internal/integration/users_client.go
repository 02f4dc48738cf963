// Package integration holds clients for service-to-service calls. Outbound
// requests go through a circuit breaker so a struggling peer service degrades
// callers instead of hanging them.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/roomhive/roomhive/internal/authz"
)

// UsersClient looks up user records from the users service. Calls are made
// with a service-account identity, which the policy limits to minimal
// read-only fields.
type UsersClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewUsersClient constructs a client for the users service at baseURL.
func NewUsersClient(baseURL string) *UsersClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "users-service",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &UsersClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		breaker: breaker,
	}
}

type userPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// EmailFor returns the email address of the given user.
func (c *UsersClient) EmailFor(ctx context.Context, userID int64) (string, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d", c.baseURL, userID), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(authz.HeaderRole, string(authz.RoleServiceAccount))
		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("integration: users service status %d", res.StatusCode)
		}
		var payload userPayload
		if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
			return nil, err
		}
		return payload.Email, nil
	})
	if err != nil {
		return "", err
	}
	email, _ := result.(string)
	return email, nil
}
