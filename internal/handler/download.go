package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/thebackstage/backstage/internal/config"
	"github.com/thebackstage/backstage/internal/service"
)

// DownloadHandler mints and redeems single-use download tokens.
type DownloadHandler struct {
	cfg                  *config.Config
	gateService          *service.GateService
	submissionService    *service.SubmissionService
	downloadTokenService *service.DownloadTokenService
	emailService         *service.EmailService
}

func NewDownloadHandler(
	cfg *config.Config,
	gateService *service.GateService,
	submissionService *service.SubmissionService,
	downloadTokenService *service.DownloadTokenService,
	emailService *service.EmailService,
) *DownloadHandler {
	return &DownloadHandler{
		cfg:                  cfg,
		gateService:          gateService,
		submissionService:    submissionService,
		downloadTokenService: downloadTokenService,
		emailService:         emailService,
	}
}

type downloadTokenResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Create handles POST /api/gates/{slug}/submissions/{id}/download-token
// The token only exists once every requirement the gate demands is verified
// on the submission.
func (h *DownloadHandler) Create(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	submissionID := r.PathValue("id")

	gate, err := h.gateService.Resolve(slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	sub, err := h.submissionService.ForGate(gate, submissionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.downloadTokenService.Issue(gate, sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	downloadURL := h.cfg.AppURL + "/download/" + token.Token

	// The link also lands in the fan's inbox so a closed tab doesn't strand
	// them. Failures here don't matter, the URL is in the response.
	err = h.emailService.SendDownloadReadyEmail(sub.Email, gate.Title, downloadURL)
	if err != nil {
		slog.Warn("failed to send download email", "error", err, "submission_id", sub.ID)
	}

	writeJSON(w, http.StatusCreated, downloadTokenResponse{
		DownloadURL: downloadURL,
		ExpiresAt:   token.ExpiresAt,
	})
}

// Redeem handles GET /download/{token} and redirects the fan to the file.
// Each token resolves exactly once.
func (h *DownloadHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	tokenString := r.PathValue("token")

	fileURL, err := h.downloadTokenService.Redeem(tokenString)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.Redirect(w, r, fileURL, http.StatusFound)
}
