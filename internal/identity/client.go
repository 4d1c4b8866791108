package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrProviderError = errors.New("identity provider error")
)

// Domain is the synthetic suffix appended to a phone number to satisfy the
// provider's email-shaped identifier requirement.
const Domain = "@example.com"

// ValidatePhone requires exactly 11 digits with a leading 7. Runs before any
// network call.
func ValidatePhone(phone string) error {
	if len(phone) != 11 {
		return fmt.Errorf("%w: phone must be 11 digits", ErrValidation)
	}
	if phone[0] != '7' {
		return fmt.Errorf("%w: phone must start with 7", ErrValidation)
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: phone must contain only digits", ErrValidation)
		}
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}

// Identifier builds the provider-facing account identifier for a phone.
func Identifier(phone string) string {
	return phone + Domain
}

// PhoneFromIdentifier strips the synthetic domain suffix back off.
func PhoneFromIdentifier(identifier string) string {
	phone, _, _ := strings.Cut(identifier, "@")
	return phone
}

// Token is what the provider hands back on a successful sign-in or sign-up.
// IDToken is an HS256 JWT whose subject is AccountID.
type Token struct {
	AccountID string `json:"localId"`
	IDToken   string `json:"idToken"`
}

// Event is an auth-state change notification. Events are delivered
// asynchronously after the provider call completes; session state must be
// driven only by these, never set directly.
type Event struct {
	SignedIn  bool
	AccountID string
}

// Client is the interface to the identity gateway.
type Client interface {
	SignUp(ctx context.Context, identifier, secret string) (*Token, error)
	SignIn(ctx context.Context, identifier, secret string) (*Token, error)
	SignOut(ctx context.Context, idToken string) error
	Subscribe(fn func(Event)) (cancel func())
}

// HTTPClient implements Client against the gateway's REST surface.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	notifier notifier
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type credentialsRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (c *HTTPClient) SignUp(ctx context.Context, identifier, secret string) (*Token, error) {
	tok, err := c.credentialsCall(ctx, "/v1/accounts:signUp", identifier, secret)
	if err != nil {
		return nil, err
	}
	c.notifier.notify(Event{SignedIn: true, AccountID: tok.AccountID})
	return tok, nil
}

func (c *HTTPClient) SignIn(ctx context.Context, identifier, secret string) (*Token, error) {
	tok, err := c.credentialsCall(ctx, "/v1/accounts:signInWithPassword", identifier, secret)
	if err != nil {
		return nil, err
	}
	c.notifier.notify(Event{SignedIn: true, AccountID: tok.AccountID})
	return tok, nil
}

func (c *HTTPClient) credentialsCall(ctx context.Context, path, identifier, secret string) (*Token, error) {
	body, err := json.Marshal(credentialsRequest{Identifier: identifier, Password: secret})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrProviderError, resp.StatusCode)
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	return &tok, nil
}

func (c *HTTPClient) SignOut(ctx context.Context, idToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/accounts:signOut", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	req.Header.Set("Authorization", "Bearer "+idToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderError, resp.StatusCode)
	}

	c.notifier.notify(Event{SignedIn: false})
	return nil
}

func (c *HTTPClient) Subscribe(fn func(Event)) (cancel func()) {
	return c.notifier.subscribe(fn)
}
