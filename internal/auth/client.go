package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tasktrack/internal/models"
)

var (
	// ErrInvalidCredentials reports a rejected email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameNotFound reports a login identifier that matches no account.
	ErrUsernameNotFound = errors.New("username not found")
	// ErrEmailTaken reports a registration against an existing email.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrUsernameTaken reports a registration against an existing username.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrMissingFields reports empty required input.
	ErrMissingFields = errors.New("all fields are required")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Client talks to the remote identity/document service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewClient creates a client for the identity service at baseURL.
func NewClient(baseURL string, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type accountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	UID string `json:"uid"`
}

type userDocument struct {
	UID             string `json:"uid"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

type userListResponse struct {
	Users []userDocument `json:"users"`
}

// Login authenticates with an email or username plus password. A username
// is first resolved to its email through the user-document collection.
func (c *Client) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	if identifier == "" || password == "" {
		return nil, ErrMissingFields
	}

	email := identifier
	if !emailPattern.MatchString(identifier) {
		doc, err := c.lookupUser(ctx, "username", identifier)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, ErrUsernameNotFound
		}
		email = doc.Email
	}

	var resp accountResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", accountRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", status)
	}

	return c.FetchProfile(ctx, resp.UID)
}

// Register creates an account after checking that neither the email nor the
// username is taken, then writes the user document keyed by the new uid.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	if doc, err := c.lookupUser(ctx, "email", email); err != nil {
		return nil, err
	} else if doc != nil {
		return nil, ErrEmailTaken
	}

	if doc, err := c.lookupUser(ctx, "username", username); err != nil {
		return nil, err
	} else if doc != nil {
		return nil, ErrUsernameTaken
	}

	var resp accountResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/v1/accounts", accountRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		return nil, ErrEmailTaken
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("identity service returned status %d", status)
	}

	doc := userDocument{UID: resp.UID, Username: username, Email: email}
	status, err = c.doJSON(ctx, http.MethodPut, "/v1/users/"+resp.UID, doc, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("failed to save user document: status %d", status)
	}

	return &models.User{ID: resp.UID, Username: username, Email: email}, nil
}

// FetchProfile retrieves the user document for a uid.
func (c *Client) FetchProfile(ctx context.Context, uid string) (*models.User, error) {
	var doc userDocument
	status, err := c.doJSON(ctx, http.MethodGet, "/v1/users/"+uid, nil, &doc)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("no profile for user %s", uid)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", status)
	}

	return &models.User{
		ID:              doc.UID,
		Username:        doc.Username,
		Email:           doc.Email,
		ProfileImageURL: doc.ProfileImageURL,
	}, nil
}

// UpdateProfile overwrites the mutable fields of the user document.
func (c *Client) UpdateProfile(ctx context.Context, uid, username, profileImageURL string) error {
	current, err := c.FetchProfile(ctx, uid)
	if err != nil {
		return err
	}

	doc := userDocument{
		UID:             uid,
		Username:        username,
		Email:           current.Email,
		ProfileImageURL: profileImageURL,
	}
	status, err := c.doJSON(ctx, http.MethodPut, "/v1/users/"+uid, doc, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("failed to save user document: status %d", status)
	}
	return nil
}

func (c *Client) lookupUser(ctx context.Context, field, value string) (*userDocument, error) {
	path := "/v1/users?" + field + "=" + url.QueryEscape(value)

	var resp userListResponse
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", status)
	}
	if len(resp.Users) == 0 {
		return nil, nil
	}
	return &resp.Users[0], nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	c.log.WithField("status", resp.StatusCode).Debugf("%s %s", method, path)

	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
