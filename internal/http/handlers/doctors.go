package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink-be/internal/http/respond"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/records"
)

// DoctorHandler serves the shared doctor directory.
type DoctorHandler struct {
	records *records.Service
}

func NewDoctorHandler(svc *records.Service) *DoctorHandler {
	return &DoctorHandler{records: svc}
}

// Register attaches routes relative to /api/doctors.
func (h *DoctorHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update(false))
		r.Patch("/", h.update(true))
		r.Delete("/", h.delete)
	})
}

func (h *DoctorHandler) list(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	doctors, err := h.records.ListDoctors(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "doctors retrieved", doctors)
}

func (h *DoctorHandler) create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var in dto.DoctorInput
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.records.CreateDoctor(r.Context(), c, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "doctor created", d)
}

func (h *DoctorHandler) get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.records.GetDoctor(r.Context(), c, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "doctor retrieved", d)
}

func (h *DoctorHandler) update(partial bool) http.HandlerFunc {
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
		var in dto.DoctorInput
		if !decodeJSON(w, r, &in) {
			return
		}
		d, err := h.records.UpdateDoctor(r.Context(), c, id, in, partial)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, "doctor updated", d)
	}
}

func (h *DoctorHandler) delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.records.DeleteDoctor(r.Context(), c, id); err != nil {
		writeError(w, r, err)
		return
	}
	respond.NoContent(w)
}
