package handler

import (
	"net/http"
	"time"

	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
)

// ConnectionsHandler lists the artist's linked platform accounts.
type ConnectionsHandler struct {
	verificationService *service.VerificationService
}

func NewConnectionsHandler(verificationService *service.VerificationService) *ConnectionsHandler {
	return &ConnectionsHandler{verificationService: verificationService}
}

type connectionView struct {
	Provider         string    `json:"provider"`
	ProviderUserID   string    `json:"providerUserId"`
	ProviderUsername *string   `json:"providerUsername,omitempty"`
	TokenExpired     bool      `json:"tokenExpired"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newConnectionView(c *model.Connection) connectionView {
	return connectionView{
		Provider:         c.Provider,
		ProviderUserID:   c.ProviderUserID,
		ProviderUsername: c.ProviderUsername,
		TokenExpired:     c.TokenExpired(),
		CreatedAt:        c.CreatedAt,
	}
}

// List handles GET /api/dashboard/connections
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	conns, err := h.verificationService.ArtistConnections(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]connectionView, 0, len(conns))
	for _, c := range conns {
		views = append(views, newConnectionView(c))
	}

	writeJSON(w, http.StatusOK, views)
}
