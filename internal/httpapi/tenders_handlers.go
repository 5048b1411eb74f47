package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tender-writer/internal/domain"
	"tender-writer/internal/store"
)

type TendersHandler struct {
	Store TenderReader
}

// GetByPath serves /tenders/{id}.
func (h TendersHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/tenders/"))
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	t, err := h.Store.Tender(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no tender "+id)
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, viewOf(t))
}

// Count serves /tenders.
func (h TendersHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.CountTenders(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"count": n})
}

func viewOf(t *domain.Tender) TenderView {
	v := TenderView{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Summary:       t.Summary,
		Source:        string(t.Source),
		Status:        string(t.Status),
		PublishedDate: t.PublishedDate,
		Tags:          make([]string, 0, len(t.Tags)),
		Documents:     make([]DocumentView, 0, len(t.SupportingDocs)),
	}
	if t.HasClosingDate() {
		c := t.ClosingDate
		v.ClosingDate = &c
	}
	for _, tag := range t.Tags {
		v.Tags = append(v.Tags, tag.Name)
	}
	for _, d := range t.SupportingDocs {
		v.Documents = append(v.Documents, DocumentView{Name: d.Name, URL: d.URL})
	}
	if sd, ok := t.Detail.(store.StoredDetail); ok {
		v.Detail = make(map[string]string, len(sd.Cols))
		for _, c := range sd.Cols {
			v.Detail[c] = sd.Get(c)
		}
	}
	return v
}
