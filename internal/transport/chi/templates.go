package chi

import (
	"bytes"
	"encoding/json"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
)

// UploadTemplate handles POST /templates.
// Multipart fields: supplier_id, template (file), optional template_name.
func (s *Server) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if !isMultipart(r) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "template upload must be multipart/form-data")
		return
	}
	if err := parseMultipart(r, s.maxUpload); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	content, filename, ok, err := formFile(r, "template")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "template file is required")
		return
	}
	name := r.FormValue("template_name")
	if name == "" {
		name = filename
	}

	spec, err := s.templates.Upload(r.Context(), r.FormValue("supplier_id"), name, content)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateToWire(&spec))
}

// updateMappingBody is the JSON form of an admin mapping update.
type updateMappingBody struct {
	AdminID string          `json:"admin_id"`
	Mapping json.RawMessage `json:"mapping"`
}

// UpdateTemplateMapping handles PUT /templates/{templateID}/mapping.
// Accepts JSON {"admin_id", "mapping"} or multipart admin_id plus a mapping file.
func (s *Server) UpdateTemplateMapping(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var adminID string
	var rules []byte
	if isMultipart(r) {
		if err := parseMultipart(r, s.maxUpload); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		data, _, ok, err := formFile(r, "mapping")
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if !ok {
			data = []byte(r.FormValue("mapping"))
		}
		adminID, rules = r.FormValue("admin_id"), data
	} else {
		var body updateMappingBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.handleDomainError(w, r, badBody(err))
			return
		}
		adminID, rules = body.AdminID, bytes.TrimSpace(body.Mapping)
	}

	spec, err := s.templates.UpdateMapping(r.Context(), gochi.URLParam(r, "templateID"), adminID, rules)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateToWire(&spec))
}

// GetSupplierTemplate handles GET /templates/supplier/{supplierID}.
func (s *Server) GetSupplierTemplate(w http.ResponseWriter, r *http.Request) {
	spec, err := s.templates.GetBySupplier(r.Context(), gochi.URLParam(r, "supplierID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateToWire(&spec))
}

// ListUnmappedTemplates handles GET /templates/unmapped.
func (s *Server) ListUnmappedTemplates(w http.ResponseWriter, r *http.Request) {
	specs, err := s.templates.ListUnmapped(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make([]Template, len(specs))
	for i := range specs {
		out[i] = templateToWire(&specs[i])
	}
	writeJSON(w, http.StatusOK, UnmappedTemplates{Templates: out})
}
