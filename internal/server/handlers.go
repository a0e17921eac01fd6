package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"visa-rag/internal/helper"
	"visa-rag/internal/models"
	"visa-rag/internal/parser"
	"visa-rag/internal/prompt"
)

type chatRequest struct {
	Question     string `json:"question"`
	UploadedText string `json:"uploaded_text,omitempty"`
	Country      string `json:"country,omitempty"`
	Category     string `json:"category,omitempty"`
}

type matchView struct {
	ID       string  `json:"id"`
	Country  string  `json:"country"`
	Category string  `json:"category"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
}

type chatResponse struct {
	Answer     string      `json:"answer"`
	AnswerHTML string      `json:"answer_html"`
	Fallback   bool        `json:"fallback"`
	Matches    []matchView `json:"matches"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rules":  s.rules.Count(),
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"countries": s.rules.Countries()})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		s.respondError(w, http.StatusBadRequest, "country is required")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": s.rules.Categories(country)})
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	category := r.URL.Query().Get("category")
	if country == "" || category == "" {
		s.respondError(w, http.StatusBadRequest, "country and category are required")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"questions": s.rules.Questions(country, category)})
}

// handleRules returns the rules for a country/category pair, rendered for
// the transparency sidebar.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	category := r.URL.Query().Get("category")

	var views []matchView
	for _, rule := range s.rules.All() {
		if country != "" && !strings.EqualFold(rule.Country, country) {
			continue
		}
		if category != "" && !strings.EqualFold(rule.Category, category) {
			continue
		}
		views = append(views, matchView{
			ID:       rule.ID,
			Country:  rule.Country,
			Category: rule.Category,
			Title:    rule.Title,
			Text:     rule.Text,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"rules": views})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	ctx := r.Context()
	matches, err := s.retriever.RetrieveFiltered(ctx, req.Question, s.cfg.RAG.TopK, req.Country, req.Category)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}
	if len(matches) == 0 {
		log.Warn().Str("question", req.Question).Msg("No matching rules found, falling back to general knowledge")
	}

	p := prompt.ComposeChat(req.Question, req.UploadedText, matches, s.cfg.RAG.MaxPromptChars)
	answer, err := s.generator.Generate(ctx, p)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, chatResponse{
		Answer:     answer,
		AnswerHTML: renderMarkdown(answer),
		Fallback:   len(matches) == 0,
		Matches:    toMatchViews(matches),
	})
}

type assessRequest struct {
	Country  string            `json:"country"`
	Category string            `json:"category"`
	Answers  map[string]string `json:"answers"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Country == "" || req.Category == "" {
		s.respondError(w, http.StatusBadRequest, "country and category are required")
		return
	}

	ctx := r.Context()
	query := req.Country + " " + req.Category + " visa requirements"
	matches, err := s.retriever.RetrieveFiltered(ctx, query, s.cfg.RAG.TopK, req.Country, req.Category)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}

	p := prompt.ComposeAssessment(req.Country, req.Category, req.Answers, matches, s.cfg.RAG.MaxPromptChars)
	answer, err := s.generator.Generate(ctx, p)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, chatResponse{
		Answer:     answer,
		AnswerHTML: renderMarkdown(answer),
		Fallback:   len(matches) == 0,
		Matches:    toMatchViews(matches),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.RAG.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	id, err := helper.GenerateUUID()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tmpPath := filepath.Join(os.TempDir(), id+strings.ToLower(filepath.Ext(header.Filename)))
	tmp, err := os.Create(tmpPath)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer os.Remove(tmpPath)

	if _, err := tmp.ReadFrom(file); err != nil {
		tmp.Close()
		s.respondError(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	tmp.Close()

	text, err := parser.ExtractText(tmpPath)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("Upload parsing failed")
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"filename": header.Filename,
		"text":     text,
		"chars":    len(text),
	})
}

func toMatchViews(matches []models.RuleMatch) []matchView {
	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, matchView{
			ID:       m.Rule.ID,
			Country:  m.Rule.Country,
			Category: m.Rule.Category,
			Title:    m.Rule.Title,
			Text:     m.Rule.Text,
			Score:    m.Score,
		})
	}
	return views
}

// respondUpstream maps retrieval/generation failures onto status codes. A
// failed remote call is a bad gateway; anything else is internal.
func (s *Server) respondUpstream(w http.ResponseWriter, err error) {
	var upstream *models.UpstreamError
	if errors.As(err, &upstream) {
		log.Error().Err(err).Msg("Upstream call failed")
		s.respondError(w, http.StatusBadGateway, upstream.Error())
		return
	}
	log.Error().Err(err).Msg("Request failed")
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Encoding response failed")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
