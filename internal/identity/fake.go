package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FakeClient is a test implementation of Client. It mints real HS256 tokens
// so handlers behind the JWT middleware can be exercised end to end. The
// account identifier doubles as the account id, matching the gateway's
// email-shaped subjects.
type FakeClient struct {
	Issuer   string
	Audience string
	Secret   []byte

	mu      sync.Mutex
	secrets map[string]string // identifier -> password

	notifier notifier
}

func NewFakeClient(issuer, audience string, secret []byte) *FakeClient {
	return &FakeClient{
		Issuer:   issuer,
		Audience: audience,
		Secret:   secret,
		secrets:  make(map[string]string),
	}
}

func (c *FakeClient) SignUp(ctx context.Context, identifier, secret string) (*Token, error) {
	c.mu.Lock()
	if _, exists := c.secrets[identifier]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: account exists", ErrAuthFailed)
	}
	c.secrets[identifier] = secret
	c.mu.Unlock()

	tok, err := c.mint(identifier)
	if err != nil {
		return nil, err
	}
	c.notifier.notify(Event{SignedIn: true, AccountID: identifier})
	return tok, nil
}

func (c *FakeClient) SignIn(ctx context.Context, identifier, secret string) (*Token, error) {
	c.mu.Lock()
	stored, ok := c.secrets[identifier]
	c.mu.Unlock()

	if !ok || stored != secret {
		return nil, fmt.Errorf("%w: bad credentials", ErrAuthFailed)
	}

	tok, err := c.mint(identifier)
	if err != nil {
		return nil, err
	}
	c.notifier.notify(Event{SignedIn: true, AccountID: identifier})
	return tok, nil
}

func (c *FakeClient) SignOut(ctx context.Context, idToken string) error {
	c.notifier.notify(Event{SignedIn: false})
	return nil
}

func (c *FakeClient) Subscribe(fn func(Event)) (cancel func()) {
	return c.notifier.subscribe(fn)
}

// HasAccount reports whether an identifier ever reached the provider.
func (c *FakeClient) HasAccount(identifier string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.secrets[identifier]
	return ok
}

// AddAccount seeds an account without going through SignUp.
func (c *FakeClient) AddAccount(identifier, secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[identifier] = secret
}

// MintToken issues a token for an account directly, for request helpers.
func (c *FakeClient) MintToken(identifier string) (*Token, error) {
	return c.mint(identifier)
}

func (c *FakeClient) mint(identifier string) (*Token, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    c.Issuer,
		Subject:   identifier,
		Audience:  jwt.ClaimStrings{c.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	return &Token{AccountID: identifier, IDToken: signed}, nil
}
