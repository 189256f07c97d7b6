package api

import (
	"net/http"

	"github.com/sprite-ai/codeq/internal/assist"
	"github.com/sprite-ai/codeq/internal/model"
	"github.com/sprite-ai/codeq/internal/scan"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.analyzer.Guard().Backend(),
	})
}

// --- Analyze ---

type analyzeRequest struct {
	FilePath string `json:"file_path,omitempty"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty" validate:"omitempty,max=32"`
}

// handleAnalyze answers 200 for every well-formed request. Empty or
// uncorrectable code comes back as an error result, not an HTTP error.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	res := s.analyzer.Analyze(r.Context(), model.Submission{
		Code:     req.Code,
		Language: req.Language,
		FileName: req.FilePath,
	})
	s.writeJSON(w, http.StatusOK, res)
}

// --- Compare ---

type compareRequest struct {
	OriginalCode string `json:"original_code"`
	ModifiedCode string `json:"modified_code"`
	Language     string `json:"language,omitempty" validate:"omitempty,max=32"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, s.analyzer.Compare(r.Context(), req.OriginalCode, req.ModifiedCode, req.Language))
}

// --- Scan ---

type scanRequest struct {
	FilePaths []string `json:"file_paths" validate:"required,min=1,dive,required"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, scan.Scan(req.FilePaths))
}

// --- Assist ---

type codeRequest struct {
	Code string `json:"code" validate:"required"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.assistant.Explain(r.Context(), req.Code))
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.assistant.Suggest(r.Context(), req.Code))
}

func (s *Server) handleAutofix(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.assistant.Autofix(r.Context(), req.Code))
}

type askRequest struct {
	Code     string `json:"code" validate:"required"`
	Question string `json:"question" validate:"required"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.assistant.AskAboutCode(r.Context(), req.Code, req.Question))
}

// --- Chat ---

type chatRequest struct {
	Messages       []assist.Message `json:"messages" validate:"required,min=1,dive"`
	ContextSnippet string           `json:"context_snippet,omitempty"`
}

type chatResponse struct {
	Messages []assist.Message `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.readJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		Messages: s.assistant.Chat(r.Context(), req.Messages, req.ContextSnippet),
	})
}
