package stubserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/sanitize"
	"github.com/Togather-Foundation/campus/internal/validation"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserDoc(currentAccount(r)))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update users.ProfileUpdate
	if err := decodeBody(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	update.Name = strings.TrimSpace(sanitize.Text(update.Name))
	if err := validation.Struct(update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := s.store.updateAccount(currentAccount(r).ID, func(a *account) error {
		if update.Name != "" {
			a.Name = update.Name
		}
		if update.Email != "" {
			a.Email = update.Email
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrUserExists):
		writeError(w, http.StatusConflict, "Email already in use")
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"user": toUserDoc(acct)})
	}
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preferences events.Types `json:"preferences"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid preferences")
		return
	}

	acct, err := s.store.updateAccount(currentAccount(r).ID, func(a *account) error {
		a.Preferences = body.Preferences
		return nil
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preferences": events.NewTypes(acct.Preferences...)})
}

// handleUserEvents lists events the caller attends or created.
func (s *Server) handleUserEvents(w http.ResponseWriter, r *http.Request) {
	userID := currentAccount(r).ID
	list := s.store.listEvents(func(rec *eventRecord) bool {
		return rec.CreatorID == userID || rec.attending(userID) >= 0
	})
	writeJSON(w, http.StatusOK, s.toEventDocs(list))
}
