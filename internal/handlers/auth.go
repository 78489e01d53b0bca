package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/xelth-com/wotrack/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Name      string `json:"name"`
	AccessKey string `json:"accessKey"`
}

// login exchanges a display name and the shared access key for a session token
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	name := strings.TrimSpace(loginReq.Name)
	if !utils.ValidOperatorName(name) {
		respondError(w, http.StatusBadRequest, "Name must have at least 3 characters")
		return
	}

	if !utils.CheckPasswordHash(loginReq.AccessKey, r.accessKeyHash) {
		log.Printf("🔒 Auth: rejected login for %q", name)
		respondError(w, http.StatusUnauthorized, "Invalid access key")
		return
	}

	token, err := utils.GenerateSessionToken(name, r.cfg.JWTSecret, r.cfg.SessionTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"name":      name,
		"expiresIn": int64(r.cfg.SessionTTL.Seconds()),
	})
}

// logout handles operator logout
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	// Tokens are stateless; the client drops its copy
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
