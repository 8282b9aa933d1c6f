package handler

import (
	"net/http"
	"time"

	"github.com/thebackstage/backstage/internal/middleware"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
)

// GateHandler serves the public funnel: gate lookup and email submission.
type GateHandler struct {
	gateService       *service.GateService
	submissionService *service.SubmissionService
	analyticsService  *service.AnalyticsService
}

func NewGateHandler(
	gateService *service.GateService,
	submissionService *service.SubmissionService,
	analyticsService *service.AnalyticsService,
) *GateHandler {
	return &GateHandler{
		gateService:       gateService,
		submissionService: submissionService,
		analyticsService:  analyticsService,
	}
}

// gateView is the public shape of a gate. File locations never leave the
// server; fans only ever see single-use download URLs.
type gateView struct {
	Slug                    string     `json:"slug"`
	Title                   string     `json:"title"`
	RequireSoundcloudRepost bool       `json:"requireSoundcloudRepost"`
	RequireSoundcloudFollow bool       `json:"requireSoundcloudFollow"`
	RequireSpotifyConnect   bool       `json:"requireSpotifyConnect"`
	SoundcloudTrackID       *string    `json:"soundcloudTrackId,omitempty"`
	SpotifyTrackID          *string    `json:"spotifyTrackId,omitempty"`
	PixelID                 *string    `json:"pixelId,omitempty"`
	ExpiresAt               *time.Time `json:"expiresAt,omitempty"`
}

type submissionView struct {
	ID                       string `json:"id"`
	Email                    string `json:"email"`
	SoundcloudRepostVerified bool   `json:"soundcloudRepostVerified"`
	SoundcloudFollowVerified bool   `json:"soundcloudFollowVerified"`
	SpotifyConnected         bool   `json:"spotifyConnected"`
	RequiresVerification     bool   `json:"requiresVerification"`
	RequirementsMet          bool   `json:"requirementsMet"`
	DownloadCompleted        bool   `json:"downloadCompleted"`
}

func newGateView(gate *model.Gate) gateView {
	return gateView{
		Slug:                    gate.Slug,
		Title:                   gate.Title,
		RequireSoundcloudRepost: gate.RequireSoundcloudRepost,
		RequireSoundcloudFollow: gate.RequireSoundcloudFollow,
		RequireSpotifyConnect:   gate.RequireSpotifyConnect,
		SoundcloudTrackID:       gate.SoundcloudTrackID,
		SpotifyTrackID:          gate.SpotifyTrackID,
		PixelID:                 gate.PixelID,
		ExpiresAt:               gate.ExpiresAt,
	}
}

func newSubmissionView(gate *model.Gate, sub *model.Submission) submissionView {
	return submissionView{
		ID:                       sub.ID,
		Email:                    sub.Email,
		SoundcloudRepostVerified: sub.SoundcloudRepostVerified,
		SoundcloudFollowVerified: sub.SoundcloudFollowVerified,
		SpotifyConnected:         sub.SpotifyConnected,
		RequiresVerification:     gate.RequiresVerification(),
		RequirementsMet:          gate.RequirementsMet(sub),
		DownloadCompleted:        sub.DownloadCompleted(),
	}
}

// Show handles GET /api/gates/{slug}
func (h *GateHandler) Show(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	gate, err := h.gateService.Resolve(slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Gate views count here, not on submit
	h.analyticsService.Track(gate.ID, model.EventTypeView)

	writeJSON(w, http.StatusOK, newGateView(gate))
}

type submitRequest struct {
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	ConsentMarketing *bool  `json:"consentMarketing"`
}

// Submit handles POST /api/gates/{slug}/submissions
func (h *GateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	var req submitRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, gate, err := h.submissionService.Submit(slug, service.SubmitInput{
		Email:            req.Email,
		FirstName:        req.FirstName,
		ConsentMarketing: req.ConsentMarketing,
		IP:               middleware.ClientIP(r),
		UserAgent:        r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSubmissionView(gate, sub))
}

// Status handles GET /api/gates/{slug}/submissions/{id}
// The gate page polls this after social redirects to refresh the checklist.
func (h *GateHandler) Status(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, newSubmissionView(gate, sub))
}
