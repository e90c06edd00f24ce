package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tasktrack/internal/models"
)

// Status is the account state published by the Authenticator.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusLoading
	StatusAuthenticated
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// AuthState is the published account snapshot.
type AuthState struct {
	Status  Status       `json:"status"`
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user,omitempty"`
}

// Authenticator drives the login/register/signout flows against the remote
// identity service and publishes the resulting account state. A signed-out
// authenticator means no tasks access.
type Authenticator struct {
	client *Client
	log    logrus.FieldLogger

	mu    sync.RWMutex
	state AuthState
}

// NewAuthenticator creates an Authenticator in the unauthenticated state.
func NewAuthenticator(client *Client, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{
		client: client,
		log:    log,
		state:  AuthState{Status: StatusUnauthenticated},
	}
}

// State returns the current account snapshot.
func (a *Authenticator) State() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Login authenticates with an email or username plus password.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	if identifier == "" || password == "" {
		a.setError("Username or password can't be empty")
		return nil, ErrMissingFields
	}

	a.setState(AuthState{Status: StatusLoading})

	user, err := a.client.Login(ctx, identifier, password)
	if err != nil {
		a.log.WithError(err).Warn("login failed")
		a.setError(loginMessage(err))
		return nil, err
	}

	a.setState(AuthState{Status: StatusAuthenticated, User: user})
	return user, nil
}

// Register creates a new account and signs the user in.
func (a *Authenticator) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		a.setError("All fields are required")
		return nil, ErrMissingFields
	}

	a.setState(AuthState{Status: StatusLoading})

	user, err := a.client.Register(ctx, username, email, password)
	if err != nil {
		a.log.WithError(err).Warn("registration failed")
		a.setError(registerMessage(err))
		return nil, err
	}

	a.setState(AuthState{Status: StatusAuthenticated, User: user})
	return user, nil
}

// SignOut drops the authenticated user.
func (a *Authenticator) SignOut() {
	a.setState(AuthState{Status: StatusUnauthenticated})
}

func (a *Authenticator) setState(state AuthState) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

func (a *Authenticator) setError(message string) {
	a.setState(AuthState{Status: StatusError, Message: message})
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsernameNotFound):
		return "Username not found"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	default:
		return "Login failed: " + err.Error()
	}
}

func registerMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return "Email is already registered"
	case errors.Is(err, ErrUsernameTaken):
		return "Username is already taken"
	default:
		return "Registration failed: " + err.Error()
	}
}
