package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"spookify/core/auth"
	"spookify/logger"
	"spookify/model"
	"spookify/repository"
)

// AuthRequest is the combined login/register request body. The action field
// selects the operation, matching the original endpoint contract.
type AuthRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthResponse is the success-shaped envelope both operations return.
type AuthResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	User    *model.User `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthHandler handles login and registration requests.
func (h *APIHandler) AuthHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Action {
	case "register":
		h.register(w, r, req)
	case "login":
		h.login(w, req)
	default:
		writeJSON(w, http.StatusOK, AuthResponse{Status: "error", Message: "Invalid action"})
	}
}

func (h *APIHandler) register(w http.ResponseWriter, r *http.Request, req AuthRequest) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusOK, AuthResponse{Status: "error", Message: "All fields are required"})
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeJSON(w, http.StatusOK, AuthResponse{Status: "error", Message: "Invalid email format"})
		return
	}

	role := req.Role
	if role != model.RoleUser && role != model.RoleAdmin {
		role = model.RoleUser
	}
	// Admin accounts may only be created by an existing admin. Without a
	// valid admin token the requested role silently degrades to user.
	if role == model.RoleAdmin {
		claims, err := bearerClaims(r)
		if err != nil || claims.Role != model.RoleAdmin {
			role = model.RoleUser
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] Failed to hash password", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}

	if _, err := h.userRepo.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] Email already registered", logger.String("email", req.Email))
			writeJSON(w, http.StatusOK, AuthResponse{Status: "error", Message: "Email already registered"})
			return
		}
		logger.Error("[Register] Failed to create user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	logger.Info("[Register] Account created",
		logger.String("username", req.Username),
		logger.String("role", role))

	writeJSON(w, http.StatusOK, AuthResponse{Status: "success", Message: "Account created successfully"})
}

func (h *APIHandler) login(w http.ResponseWriter, req AuthRequest) {
	user, err := h.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		logger.Error("[Login] Failed to query user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// One generic message for unknown email and wrong password; the
	// response must not reveal whether the account exists.
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] Invalid credentials", logger.String("email", req.Email))
		writeJSON(w, http.StatusOK, AuthResponse{Status: "error", Message: "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		logger.Error("[Login] Failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Login] Login successful", logger.String("username", user.Username))

	writeJSON(w, http.StatusOK, AuthResponse{
		Status:  "success",
		Message: "Login successful",
		User: &model.User{
			ID:           user.ID,
			Username:     user.Username,
			Email:        user.Email,
			Role:         user.Role,
			Subscription: user.Subscription,
			SubscribedAt: user.SubscribedAt,
		},
		Token: token,
	})
}
