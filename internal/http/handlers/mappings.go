package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink-be/internal/http/respond"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/records"
)

// MappingHandler serves patient-doctor links for the caller's patients.
type MappingHandler struct {
	records *records.Service
}

func NewMappingHandler(svc *records.Service) *MappingHandler {
	return &MappingHandler{records: svc}
}

// Register attaches routes relative to /api/mappings.
func (h *MappingHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update(false))
		r.Patch("/", h.update(true))
		r.Delete("/", h.delete)
	})
}

func (h *MappingHandler) list(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	mappings, err := h.records.ListMappings(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "mappings retrieved", mappings)
}

func (h *MappingHandler) create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var in dto.MappingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.records.CreateMapping(r.Context(), c, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "mapping created", m)
}

func (h *MappingHandler) get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.records.GetMapping(r.Context(), c, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "mapping retrieved", m)
}

func (h *MappingHandler) update(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := caller(w, r)
		if !ok {
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in dto.MappingInput
		if !decodeJSON(w, r, &in) {
			return
		}
		m, err := h.records.UpdateMapping(r.Context(), c, id, in, partial)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, "mapping updated", m)
	}
}

func (h *MappingHandler) delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.records.DeleteMapping(r.Context(), c, id); err != nil {
		writeError(w, r, err)
		return
	}
	respond.NoContent(w)
}
