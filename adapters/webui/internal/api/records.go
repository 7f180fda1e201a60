package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/luno/sepadoc"
)

type RecordsResponse struct {
	Page      int          `json:"page"`
	PageCount int          `json:"page_count"`
	PerPage   int          `json:"per_page"`
	Total     int          `json:"total"`
	Items     []RecordItem `json:"items"`
}

// RecordItem is a record with its attributes formatted the way documents show them.
type RecordItem struct {
	ID           string            `json:"id"`
	Selected     bool              `json:"selected"`
	DocumentPath string            `json:"document_path,omitempty"`
	Attributes   map[string]string `json:"attributes"`
}

type SelectRequest struct {
	Selected bool `json:"selected"`
}

// Records lists one page of the working set. The optional height parameter resizes the pagination first.
func Records(p *sepadoc.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := intParam(r, "page", 0)
		if err != nil || page < 0 {
			http.Error(w, "Bad Request: invalid page", http.StatusBadRequest)
			return
		}

		height, err := intParam(r, "height", 0)
		if err != nil || height < 0 {
			http.Error(w, "Bad Request: invalid height", http.StatusBadRequest)
			return
		}

		pagination := p.Pagination()
		if height > 0 {
			pagination = p.Resize(height)
		}

		items := []RecordItem{}
		for _, rec := range p.Page(page) {
			items = append(items, toItem(rec))
		}

		writeJSON(w, http.StatusOK, RecordsResponse{
			Page:      page,
			PageCount: pagination.PageCount,
			PerPage:   pagination.ItemsPerPage,
			Total:     pagination.Total,
			Items:     items,
		})
	}
}

func toItem(rec sepadoc.Record) RecordItem {
	attrs := make(map[string]string, len(rec.Attributes))
	for name, v := range rec.Attributes {
		attrs[name] = v.Format()
	}

	return RecordItem{
		ID:           rec.IDString(),
		Selected:     rec.Selected,
		DocumentPath: rec.DocumentPath,
		Attributes:   attrs,
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}

	return strconv.Atoi(v)
}

func Select(p *sepadoc.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "Bad Request: invalid record id", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Bad Request: cannot read body", http.StatusBadRequest)
			return
		}

		var req SelectRequest
		err = json.Unmarshal(body, &req)
		if err != nil {
			http.Error(w, "Bad Request: cannot unmarshal body", http.StatusBadRequest)
			return
		}

		err = p.SetSelected(id, req.Selected)
		if err != nil {
			writeError(w, err)
			return
		}

		rec, err := p.Record(id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toItem(rec))
	}
}
