package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/common"
	"github.com/g1appdev/hubbits/internal/logging"
)

var (
	// ErrNoToken is returned when a login response carries no token.
	ErrNoToken = errors.New("login response carried no token")
	// ErrPasswordMismatch is returned when a new password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNotSignedIn is returned by calls that need the current identity.
	ErrNotSignedIn = errors.New("not signed in")
)

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 8

// Session is the part of session.Store the auth flows drive.
type Session interface {
	Get() (models.Identity, bool)
	Set(ctx context.Context, identity models.Identity) error
	Clear(ctx context.Context) error
	SetTokens(ctx context.Context, access, refresh string) error
	SetAccessToken(ctx context.Context, access string) error
}

// AuthService implements the account flows of the client.
type AuthService struct {
	api     API
	session Session
	log     logging.Logger
}

func NewAuthService(api API, s Session, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &AuthService{api: api, session: s, log: log}
}

// Login exchanges credentials for a token, stores it, resolves the profile
// and signs the identity in. password is wiped before returning.
func (a *AuthService) Login(ctx context.Context, username string, password []byte) (models.Identity, error) {
	defer common.WipeByteArray(password)

	if _, ok := a.session.Get(); ok {
		if err := a.session.Clear(ctx); err != nil {
			return models.Identity{}, fmt.Errorf("login: %w", err)
		}
	}

	req, err := client.JSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": string(password),
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}
	req.Public = true

	resp, err := a.api.Do(ctx, req)
	if err != nil {
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}

	access, refresh := loginTokens(resp.Body)
	if access == "" {
		return models.Identity{}, fmt.Errorf("login: %w", ErrNoToken)
	}
	if err := a.session.SetTokens(ctx, access, refresh); err != nil {
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}

	identity, err := a.Me(ctx)
	if err != nil {
		_ = a.session.Clear(ctx)
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}
	if err := a.session.Set(ctx, identity); err != nil {
		return identity, fmt.Errorf("login: %w", err)
	}

	a.log.Info(ctx, "signed in", "user_id", identity.UserID, "username", identity.Username)
	return identity, nil
}

// loginTokens accepts a raw token body or a JSON object with token fields.
func loginTokens(body []byte) (access, refresh string) {
	var obj struct {
		Token        string `json:"token"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if json.Unmarshal(body, &obj) == nil {
		if obj.AccessToken != "" {
			return obj.AccessToken, obj.RefreshToken
		}
		return obj.Token, obj.RefreshToken
	}
	var s string
	if json.Unmarshal(body, &s) == nil {
		return s, ""
	}
	return strings.TrimSpace(string(body)), ""
}

// Me fetches the profile for the current access token.
func (a *AuthService) Me(ctx context.Context) (models.Identity, error) {
	var id models.Identity
	if err := a.api.GetJSON(ctx, "/api/users/me", &id); err != nil {
		return models.Identity{}, err
	}
	return id, nil
}

// Resolve is a session.Resolver backed by Me.
func (a *AuthService) Resolve(ctx context.Context) (models.Identity, error) {
	return a.Me(ctx)
}

// Logout ends the session locally.
func (a *AuthService) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}

// Signup registers an account. The form is checked locally first, including
// the minimum password length.
func (a *AuthService) Signup(ctx context.Context, form models.SignupForm) error {
	if err := models.Validate(form); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	req, err := client.JSONRequest(http.MethodPost, "/api/auth/signup", form)
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	req.Public = true
	if _, err := a.api.Do(ctx, req); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// UsernameTaken asks the server whether username is in use.
func (a *AuthService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return a.check(ctx, "/api/auth/check-username", "username", username)
}

// EmailTaken asks the server whether email is in use.
func (a *AuthService) EmailTaken(ctx context.Context, email string) (bool, error) {
	return a.check(ctx, "/api/auth/check-email", "email", email)
}

func (a *AuthService) check(ctx context.Context, path, param, value string) (bool, error) {
	resp, err := a.api.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  url.Values{param: []string{value}},
		Public: true,
	})
	if err != nil {
		return false, fmt.Errorf("check %s: %w", param, err)
	}
	taken, err := strconv.ParseBool(strings.TrimSpace(string(resp.Body)))
	if err != nil {
		return false, fmt.Errorf("check %s: unexpected response %q", param, resp.Body)
	}
	return taken, nil
}

// ProfileResult is the body of a successful profile update.
type ProfileResult struct {
	UpdatedUser models.Identity `json:"updatedUser"`
	NewToken    string          `json:"newToken"`
}

// UpdateProfile sends the edited profile, with an optional picture, and
// signs the returned identity in. A new token in the response replaces
// the access token first.
func (a *AuthService) UpdateProfile(ctx context.Context, update models.ProfileUpdate, picturePath string) (models.Identity, error) {
	current, ok := a.session.Get()
	if !ok {
		return models.Identity{}, ErrNotSignedIn
	}
	if err := models.Validate(update); err != nil {
		return models.Identity{}, fmt.Errorf("update profile: %w", err)
	}

	var body client.MultipartBody
	body.JSONPart(UserEndpoints.Part, update)
	if err := body.FileFromPath(UserEndpoints.FilePart, picturePath); err != nil {
		return models.Identity{}, fmt.Errorf("update profile: %w", err)
	}

	var res ProfileResult
	path := UserEndpoints.path(UserEndpoints.Update, current.UserID)
	if err := a.api.SendMultipart(ctx, http.MethodPut, path, body, &res); err != nil {
		return models.Identity{}, fmt.Errorf("update profile: %w", err)
	}

	if res.NewToken != "" {
		if err := a.session.SetAccessToken(ctx, res.NewToken); err != nil {
			return models.Identity{}, fmt.Errorf("update profile: %w", err)
		}
	}
	updated := res.UpdatedUser
	if updated.UserID == 0 {
		updated.UserID = current.UserID
	}
	if updated.Role == "" {
		updated.Role = current.Role
	}
	if err := a.session.Set(ctx, updated); err != nil {
		return updated, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// ChangePassword changes the signed-in user's password. Both slices are
// wiped before returning.
func (a *AuthService) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm []byte) error {
	defer common.WipeByteArray(oldPassword)
	defer common.WipeByteArray(newPassword)
	defer common.WipeByteArray(confirm)

	if string(newPassword) != string(confirm) {
		return ErrPasswordMismatch
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("change password: %w: new password must be at least %d characters", models.ErrInvalidDraft, MinPasswordLength)
	}

	err := a.api.SendJSON(ctx, http.MethodPost, "/api/users/change-password", map[string]string{
		"oldPassword":     string(oldPassword),
		"newPassword":     string(newPassword),
		"confirmPassword": string(confirm),
	}, nil)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}
