package handlers

import (
	"net/http"

	"github.com/ukydev/factory-log/internal/middleware"
	"github.com/ukydev/factory-log/internal/models"
)

// ActorHandler exposes the caller's identity as carried by the bearer token
type ActorHandler struct{}

// ActorProfile is the caller with the actions its role allows
type ActorProfile struct {
	models.Actor
	Permissions []string `json:"permissions"`
}

func NewActorHandler() *ActorHandler {
	return &ActorHandler{}
}

// Me handles GET /api/me
func (h *ActorHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Actor context not found", http.StatusUnauthorized)
		return
	}

	profile := ActorProfile{Actor: actor, Permissions: []string{}}
	for _, action := range models.AllActions {
		if actor.HasPermission(action) {
			profile.Permissions = append(profile.Permissions, action)
		}
	}
	writeJSON(w, http.StatusOK, profile)
}
