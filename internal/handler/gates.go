package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
	"github.com/thebackstage/backstage/internal/storage"
	"github.com/thebackstage/backstage/internal/validation"
)

// GatesHandler is the artist-facing gate management API.
type GatesHandler struct {
	gateService       *service.GateService
	submissionService *service.SubmissionService
	fileStorage       storage.Storage
}

func NewGatesHandler(
	gateService *service.GateService,
	submissionService *service.SubmissionService,
	fileStorage storage.Storage,
) *GatesHandler {
	return &GatesHandler{
		gateService:       gateService,
		submissionService: submissionService,
		fileStorage:       fileStorage,
	}
}

// ownerGateView is the artist's view of their own gate, file settings
// included.
type ownerGateView struct {
	ID                      string     `json:"id"`
	Slug                    string     `json:"slug"`
	Title                   string     `json:"title"`
	Active                  bool       `json:"active"`
	RequireSoundcloudRepost bool       `json:"requireSoundcloudRepost"`
	RequireSoundcloudFollow bool       `json:"requireSoundcloudFollow"`
	RequireSpotifyConnect   bool       `json:"requireSpotifyConnect"`
	SoundcloudTrackID       *string    `json:"soundcloudTrackId,omitempty"`
	SoundcloudUserID        *string    `json:"soundcloudUserId,omitempty"`
	SpotifyTrackID          *string    `json:"spotifyTrackId,omitempty"`
	FileKey                 *string    `json:"fileKey,omitempty"`
	FileURL                 *string    `json:"fileUrl,omitempty"`
	PixelID                 *string    `json:"pixelId,omitempty"`
	RejectDuplicates        bool       `json:"rejectDuplicates"`
	ExpiresAt               *time.Time `json:"expiresAt,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
}

func newOwnerGateView(gate *model.Gate) ownerGateView {
	return ownerGateView{
		ID:                      gate.ID,
		Slug:                    gate.Slug,
		Title:                   gate.Title,
		Active:                  gate.Active,
		RequireSoundcloudRepost: gate.RequireSoundcloudRepost,
		RequireSoundcloudFollow: gate.RequireSoundcloudFollow,
		RequireSpotifyConnect:   gate.RequireSpotifyConnect,
		SoundcloudTrackID:       gate.SoundcloudTrackID,
		SoundcloudUserID:        gate.SoundcloudUserID,
		SpotifyTrackID:          gate.SpotifyTrackID,
		FileKey:                 gate.FileKey,
		FileURL:                 gate.FileURL,
		PixelID:                 gate.PixelID,
		RejectDuplicates:        gate.RejectDuplicates,
		ExpiresAt:               gate.ExpiresAt,
		CreatedAt:               gate.CreatedAt,
	}
}

type gateRequest struct {
	Title                   string     `json:"title"`
	Slug                    string     `json:"slug"`
	RequireSoundcloudRepost bool       `json:"requireSoundcloudRepost"`
	RequireSoundcloudFollow bool       `json:"requireSoundcloudFollow"`
	RequireSpotifyConnect   bool       `json:"requireSpotifyConnect"`
	SoundcloudTrackID       *string    `json:"soundcloudTrackId"`
	SoundcloudUserID        *string    `json:"soundcloudUserId"`
	SpotifyTrackID          *string    `json:"spotifyTrackId"`
	FileKey                 *string    `json:"fileKey"`
	FileURL                 *string    `json:"fileUrl"`
	PixelID                 *string    `json:"pixelId"`
	RejectDuplicates        bool       `json:"rejectDuplicates"`
	ExpiresAt               *time.Time `json:"expiresAt"`
}

// List handles GET /api/dashboard/gates
func (h *GatesHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	gates, err := h.gateService.ByUser(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]ownerGateView, 0, len(gates))
	for _, gate := range gates {
		views = append(views, newOwnerGateView(gate))
	}

	writeJSON(w, http.StatusOK, views)
}

// Create handles POST /api/dashboard/gates
func (h *GatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req gateRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gate, err := h.gateService.Create(user.ID, service.CreateGateInput{
		Title:                   req.Title,
		Slug:                    req.Slug,
		RequireSoundcloudRepost: req.RequireSoundcloudRepost,
		RequireSoundcloudFollow: req.RequireSoundcloudFollow,
		RequireSpotifyConnect:   req.RequireSpotifyConnect,
		SoundcloudTrackID:       req.SoundcloudTrackID,
		SoundcloudUserID:        req.SoundcloudUserID,
		SpotifyTrackID:          req.SpotifyTrackID,
		FileKey:                 req.FileKey,
		FileURL:                 req.FileURL,
		PixelID:                 req.PixelID,
		RejectDuplicates:        req.RejectDuplicates,
		ExpiresAt:               req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newOwnerGateView(gate))
}

// Get handles GET /api/dashboard/gates/{id}
func (h *GatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	gate, err := h.ownedGate(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newOwnerGateView(gate))
}

// Update handles PUT /api/dashboard/gates/{id}
// The slug is immutable once minted: shared links must keep working.
func (h *GatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	gate, err := h.ownedGate(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req gateRequest
	err = decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) != "" {
		gate.Title = strings.TrimSpace(req.Title)
	}
	gate.RequireSoundcloudRepost = req.RequireSoundcloudRepost
	gate.RequireSoundcloudFollow = req.RequireSoundcloudFollow
	gate.RequireSpotifyConnect = req.RequireSpotifyConnect
	gate.SoundcloudTrackID = req.SoundcloudTrackID
	gate.SoundcloudUserID = req.SoundcloudUserID
	gate.SpotifyTrackID = req.SpotifyTrackID
	if req.FileKey != nil || req.FileURL != nil {
		gate.FileKey = req.FileKey
		gate.FileURL = req.FileURL
	}
	gate.PixelID = req.PixelID
	gate.RejectDuplicates = req.RejectDuplicates
	gate.ExpiresAt = req.ExpiresAt

	err = h.gateService.Update(gate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newOwnerGateView(gate))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles POST /api/dashboard/gates/{id}/active
func (h *GatesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	gateID := r.PathValue("id")

	var req setActiveRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.gateService.SetActive(user.ID, gateID, req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// Submissions handles GET /api/dashboard/gates/{id}/submissions
func (h *GatesHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	gate, err := h.ownedGate(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	subs, err := h.submissionService.ListForGate(gate.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]submissionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, newSubmissionView(gate, sub))
	}

	writeJSON(w, http.StatusOK, views)
}

const maxUploadSize = 512 << 20 // hard cap on the multipart body

type uploadResponse struct {
	FileKey string `json:"fileKey"`
}

// Upload handles POST /api/dashboard/gates/files
// Accepts a track or a sample pack archive and returns the object key to
// attach to a gate.
func (h *GatesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	err = validation.ValidateFile(header, validation.AudioConstraints, validation.ArchiveConstraints)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := fmt.Sprintf("gates/%s/%s%s", user.ID, uuid.New().String(), ext)

	err = h.fileStorage.Save(key, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{FileKey: key})
}

// ownedGate loads the path gate and enforces ownership. Foreign gates read
// as 404, not 403, so gate IDs stay unguessable.
func (h *GatesHandler) ownedGate(r *http.Request) (*model.Gate, error) {
	user := ctxkeys.User(r.Context())
	gateID := r.PathValue("id")

	gate, err := h.gateService.ByID(gateID)
	if err != nil {
		return nil, err
	}
	if gate.UserID != user.ID {
		return nil, service.ErrGateNotFound
	}

	return gate, nil
}
