package handler

import (
	"net/http"
	"time"

	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
)

// ContactsHandler serves the artist's mailing list.
type ContactsHandler struct {
	contactService *service.ContactService
}

func NewContactsHandler(contactService *service.ContactService) *ContactsHandler {
	return &ContactsHandler{contactService: contactService}
}

type contactView struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        *string   `json:"firstName,omitempty"`
	ConsentMarketing bool      `json:"consentMarketing"`
	Source           string    `json:"source"`
	GateID           *string   `json:"gateId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newContactView(c *model.Contact) contactView {
	return contactView{
		ID:               c.ID,
		Email:            c.Email,
		FirstName:        c.FirstName,
		ConsentMarketing: c.ConsentMarketing,
		Source:           c.Source,
		GateID:           c.GateID,
		CreatedAt:        c.CreatedAt,
	}
}

// List handles GET /api/dashboard/contacts
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	contacts, err := h.contactService.ByUser(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]contactView, 0, len(contacts))
	for _, c := range contacts {
		views = append(views, newContactView(c))
	}

	writeJSON(w, http.StatusOK, views)
}

const maxImportSize = 20 << 20

// Import handles POST /api/dashboard/contacts/import
// Takes a CSV in the "file" multipart field; the column mapping is inferred
// from the header row.
func (h *ContactsHandler) Import(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	err := r.ParseMultipartForm(8 << 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.contactService.ImportCSV(user.ID, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
