package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink-be/internal/http/respond"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/records"
)

// PatientHandler serves the caller's patients.
type PatientHandler struct {
	records *records.Service
}

func NewPatientHandler(svc *records.Service) *PatientHandler {
	return &PatientHandler{records: svc}
}

// Register attaches routes relative to /api/patients.
func (h *PatientHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update(false))
		r.Patch("/", h.update(true))
		r.Delete("/", h.delete)
		r.Get("/mappings", h.mappings)
	})
}

func (h *PatientHandler) list(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	patients, err := h.records.ListPatients(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "patients retrieved", patients)
}

func (h *PatientHandler) create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var in dto.PatientInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.records.CreatePatient(r.Context(), c, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "patient created", p)
}

func (h *PatientHandler) get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.records.GetPatient(r.Context(), c, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "patient retrieved", p)
}

func (h *PatientHandler) update(partial bool) http.HandlerFunc {
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
		var in dto.PatientInput
		if !decodeJSON(w, r, &in) {
			return
		}
		p, err := h.records.UpdatePatient(r.Context(), c, id, in, partial)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, "patient updated", p)
	}
}

func (h *PatientHandler) delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.records.DeletePatient(r.Context(), c, id); err != nil {
		writeError(w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *PatientHandler) mappings(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.records.ListPatientMappings(r.Context(), c, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "patient doctors retrieved", out)
}
