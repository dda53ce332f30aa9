package api

import (
	"errors"
	"fmt"
	"net/http"

	"parley/internal/content"
	"parley/internal/models"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// UserDirectory is the part of the user store the admin API needs.
type UserDirectory interface {
	AddUser(username string) (models.User, error)
	ListUsers() ([]models.User, error)
}

type presence interface {
	Online() []string
}

type AdminHandler struct {
	directory UserDirectory
	presence  presence
}

func NewAdminHandler(directory UserDirectory, presence presence) *AdminHandler {
	return &AdminHandler{directory: directory, presence: presence}
}

type AddUserRequest struct {
	Username string `json:"username"`
}

type AddUserResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username,omitempty"`
}

type UsersResponse struct {
	Users []string `json:"users"`
}

type SessionsResponse struct {
	Online []string `json:"online"`
}

func (h *AdminHandler) AddUserHandler(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := content.ValidateUsername(req.Username); err != nil {
		writeJSON(w, http.StatusBadRequest, AddUserResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	user, err := h.directory.AddUser(req.Username)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrUserExists) {
			status = http.StatusConflict
		} else {
			log.Error().Err(err).Str("username", req.Username).Msg("failed to add user")
		}
		writeJSON(w, status, AddUserResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to create user: %v", err),
		})
		return
	}

	log.Info().Str("username", user.Username).Msg("user provisioned by admin")
	writeJSON(w, http.StatusOK, AddUserResponse{
		Success:  true,
		Username: user.Username,
	})
}

func (h *AdminHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: names})
}

func (h *AdminHandler) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionsResponse{Online: h.presence.Online()})
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
