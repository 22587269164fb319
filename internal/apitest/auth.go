package apitest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/common"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxUploadSize = 10 << 20

// mintAccess signs an access token for u. Callers hold s.mu.
func (s *Server) mintAccess(u models.User) (string, error) {
	c := Claims{UserID: u.UserID, Role: u.Role, Gen: s.gen}
	c.Subject = u.Username
	c.ID = uuid.NewString()
	return generateToken(c, s.secret, s.now(), s.accessTTL)
}

// mintRefresh stores a new opaque refresh token for userID. Callers hold s.mu.
func (s *Server) mintRefresh(userID int64) string {
	t := uuid.NewString()
	s.refreshTokens[t] = userID
	return t
}

func (s *Server) findUser(match func(models.User) bool) (models.User, bool) {
	for _, u := range s.users.list() {
		if match(u) {
			return u, true
		}
	}
	return models.User{}, false
}

func (s *Server) identity(u models.User) models.Identity {
	return models.Identity{
		UserID:         u.UserID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Address:        u.Address,
		PhoneNumber:    u.PhoneNumber,
		Role:           u.Role,
		ProfilePicture: s.pictures[u.UserID],
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.findUser(func(u models.User) bool { return u.Username == req.Username })
	if !ok || bcrypt.CompareHashAndPassword(s.hashes[u.UserID], []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	access, err := s.mintAccess(u)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.rawLogin {
		writeText(w, http.StatusOK, access)
		return
	}
	writeJSON(w, http.StatusOK, models.TokenPair{AccessToken: access, RefreshToken: s.mintRefresh(u.UserID)})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(common.RefreshTokenHeaderName)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++

	userID, ok := s.refreshTokens[token]
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	u, ok := s.users.get(userID)
	if !ok {
		delete(s.refreshTokens, token)
		writeMessage(w, http.StatusUnauthorized, "unknown user")
		return
	}

	access, err := s.mintAccess(u)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(common.NewAccessTokenHeaderName, access)
	if s.rotate {
		delete(s.refreshTokens, token)
		w.Header().Set(common.NewRefreshTokenHeaderName, s.mintRefresh(u.UserID))
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var form models.SignupForm
	if err := decodeJSON(r, &form); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request")
		return
	}
	if err := models.Validate(form); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.hashCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.conflict(0, form.Username, form.Email); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	role := form.Role
	if role == "" {
		role = string(models.RoleUser)
	}
	u := s.users.insert(models.User{
		Username:    form.Username,
		Email:       form.Email,
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Address:     form.Address,
		PhoneNumber: form.PhoneNumber,
		Role:        role,
	})
	s.hashes[u.UserID] = hash
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// conflict reports which unique field another account than self already
// uses. Callers hold s.mu.
func (s *Server) conflict(self int64, username, email string) string {
	for _, u := range s.users.list() {
		if u.UserID == self {
			continue
		}
		if username != "" && u.Username == username {
			return "Username is already taken"
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return "Email is already in use"
		}
	}
	return ""
}

func (s *Server) checkUsername(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("username")
	s.mu.Lock()
	_, taken := s.findUser(func(u models.User) bool { return u.Username == name })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, taken)
}

func (s *Server) checkEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	s.mu.Lock()
	_, taken := s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, taken)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.get(c.UserID)
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, s.identity(u))
}

// updateUser applies a multipart profile edit. Users may edit themselves;
// admins may edit anyone and change roles. The answer carries a token for
// the updated account.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c := claimsFrom(r.Context())
	admin := models.ParseRoles(c.Role).Has(models.RoleAdmin)
	if c.UserID != id && !admin {
		writeMessage(w, http.StatusForbidden, "cannot edit another user")
		return
	}

	var edit models.User
	upload, err := s.readMultipart(r, "user", "profilePicture", &edit)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users.get(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if msg := s.conflict(id, edit.Username, edit.Email); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	overlay(&u.Username, edit.Username)
	overlay(&u.Email, edit.Email)
	overlay(&u.FirstName, edit.FirstName)
	overlay(&u.LastName, edit.LastName)
	overlay(&u.Address, edit.Address)
	overlay(&u.PhoneNumber, edit.PhoneNumber)
	if admin {
		overlay(&u.Role, edit.Role)
	}
	if edit.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(edit.Password), s.hashCost)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.hashes[id] = hash
	}
	if upload != nil {
		s.pictures[id] = s.storeUpload(r, *upload)
	}
	u, _ = s.users.replace(id, u)

	token, err := s.mintAccess(u)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updatedUser": s.identity(u),
		"newToken":    token,
	})
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.ConfirmPassword != "" && req.NewPassword != req.ConfirmPassword {
		writeMessage(w, http.StatusBadRequest, "Passwords do not match")
		return
	}
	if len(req.NewPassword) < 8 {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	c := claimsFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	if bcrypt.CompareHashAndPassword(s.hashes[c.UserID], []byte(req.OldPassword)) != nil {
		writeText(w, http.StatusBadRequest, "Old password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hashes[c.UserID] = hash
	writeText(w, http.StatusOK, "Password changed successfully")
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := s.users.list()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := decodeJSON(r, &u); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request")
		return
	}
	if err := models.Validate(u); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(u.Password) < 8 {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	msg := s.conflict(0, u.Username, u.Email)
	s.mu.Unlock()
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.AddUser(u, u.Password)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users.remove(id) {
		writeText(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.hashes, id)
	delete(s.pictures, id)
	for t, uid := range s.refreshTokens {
		if uid == id {
			delete(s.refreshTokens, t)
		}
	}
	writeText(w, http.StatusOK, "User deleted successfully")
}

// readMultipart decodes the JSON form field part into v and returns the
// file in filePart, if any.
func (s *Server) readMultipart(r *http.Request, part, filePart string, v any) (*Upload, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	raw := r.FormValue(part)
	if raw == "" {
		return nil, fmt.Errorf("missing %q part", part)
	}
	if err := decodeString(raw, v); err != nil {
		return nil, fmt.Errorf("decode %q part: %w", part, err)
	}
	return readUpload(r, filePart)
}

// readFlatForm decodes one form field per record field into v and returns
// the file in filePart, if any.
func (s *Server) readFlatForm(r *http.Request, filePart string, v any) (*Upload, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	if err := decodeForm(r.MultipartForm.Value, v); err != nil {
		return nil, err
	}
	return readUpload(r, filePart)
}

func readUpload(r *http.Request, filePart string) (*Upload, error) {
	if filePart == "" {
		return nil, nil
	}
	f, hdr, err := r.FormFile(filePart)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q part: %w", filePart, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(f)
	n, err := io.Copy(io.Discard, f)
	if err != nil {
		return nil, fmt.Errorf("read %q part: %w", filePart, err)
	}
	return &Upload{Field: filePart, Filename: hdr.Filename, Size: n}, nil
}

// storeUpload records u and returns the URL the file is served under.
// Callers hold s.mu.
func (s *Server) storeUpload(r *http.Request, u Upload) string {
	u.Route = r.Method + " " + r.URL.Path
	s.uploads = append(s.uploads, u)
	return "/uploads/" + uuid.NewString() + "-" + u.Filename
}
