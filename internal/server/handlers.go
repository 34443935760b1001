package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/compliance-engine/internal/filestore"
)

// maxUploadBytes bounds in-memory multipart parsing; larger parts spill to
// temporary files.
const maxUploadBytes = 32 << 20

var validate = validator.New()

// CheckUploadedRequest is the body for POST /check/uploaded
type CheckUploadedRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	FileID  string `json:"file_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// handleUploadRules pre-indexes a rules document for later checks.
// Multipart fields: user_id (required), file_id (optional), file part "rules".
func (s *Server) handleUploadRules(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	userID := r.FormValue("user_id")
	if userID == "" {
		err := &ErrValidation{Field: "user_id", Message: "required"}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	file, header, err := r.FormFile("rules")
	if err != nil {
		verr := &ErrValidation{Field: "rules", Message: "file part is required"}
		s.errorResponse(w, HTTPStatus(verr), verr.Error())
		return
	}
	defer file.Close()

	result, err := s.engine.UploadRules(r.Context(), &filestore.ReaderSource{
		Reader:   file,
		FileName: header.Filename,
	}, userID, r.FormValue("file_id"))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

// handleCheck runs one full compliance check. Multipart fields: user_id and
// content (required), optional file part "rules"; with no rules part the
// shared standard rules apply.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	userID := r.FormValue("user_id")
	content := r.FormValue("content")
	if userID == "" || content == "" {
		err := &ErrValidation{Field: "user_id, content", Message: "required"}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var src filestore.Source
	if file, header, err := r.FormFile("rules"); err == nil {
		defer file.Close()
		src = &filestore.ReaderSource{Reader: file, FileName: header.Filename}
	}

	result := s.engine.CheckCompliance(r.Context(), userID, src, content)
	s.jsonResponse(w, http.StatusOK, result)
}

// handleCheckUploaded runs a check against rules indexed earlier.
func (s *Server) handleCheckUploaded(w http.ResponseWriter, r *http.Request) {
	var req CheckUploadedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(&req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := &ErrValidation{Field: verrs[0].Field(), Message: verrs[0].Tag()}
			s.errorResponse(w, HTTPStatus(e), e.Error())
			return
		}
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.engine.CheckComplianceWithUploadedRules(r.Context(), req.UserID, req.FileID, req.Content)
	s.jsonResponse(w, http.StatusOK, result)
}

// handleDeleteRules removes a pre-uploaded rules document:
// DELETE /rules/{file_id}?user_id=...
func (s *Server) handleDeleteRules(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("file_id")
	userID := r.URL.Query().Get("user_id")
	if fileID == "" || userID == "" {
		err := &ErrValidation{Field: "user_id, file_id", Message: "required"}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	result, err := s.engine.DeleteRules(r.Context(), userID, fileID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Status == "not_found" {
		nf := &ErrRulesNotFound{UserID: userID, FileID: fileID}
		s.errorResponse(w, HTTPStatus(nf), nf.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
