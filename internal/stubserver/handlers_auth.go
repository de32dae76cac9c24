package stubserver

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/sanitize"
	"github.com/Togather-Foundation/campus/internal/validation"
)

type authResponse struct {
	Token string  `json:"token"`
	User  userDoc `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds users.Credentials
	if err := decodeBody(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	acct, err := s.store.accountByEmail(creds.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(creds.Password)); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	s.issue(w, r, http.StatusOK, acct)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg users.Registration
	if err := decodeBody(w, r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	reg.Name = strings.TrimSpace(sanitize.Text(reg.Name))
	if err := validation.Struct(reg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := s.createAccount(reg.Name, reg.Email, reg.Password, reg.Role, reg.Preferences)
	if errors.Is(err, ErrUserExists) {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.issue(w, r, http.StatusCreated, acct)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, status int, acct account) {
	token, err := s.jwt.Generate(acct.ID, acct.Role)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: toUserDoc(acct)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserDoc(currentAccount(r)))
}
