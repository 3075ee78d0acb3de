package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/catalogapi"
	"github.com/c360studio/swagger2dcat/deepl"
	"github.com/c360studio/swagger2dcat/describe"
	"github.com/c360studio/swagger2dcat/export"
	"github.com/c360studio/swagger2dcat/llm"
	"github.com/c360studio/swagger2dcat/review"
	"github.com/c360studio/swagger2dcat/source/fetcher"
	"github.com/c360studio/swagger2dcat/source/parser"
	"github.com/c360studio/swagger2dcat/storage"
	"github.com/c360studio/swagger2dcat/translate"
)

const maxFormBytes = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/start", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "start", s.newPageData(r.Context()))
}

// handleStart handles POST /start: fetch, parse and map, then bind the new
// draft to the session.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	form := startForm{
		URL:         strings.TrimSpace(r.PostFormValue("url")),
		LandingPage: strings.TrimSpace(r.PostFormValue("landing_page")),
		PublisherID: strings.TrimSpace(r.PostFormValue("publisher")),
	}
	data := s.newPageData(r.Context())
	data.Form = form

	if form.URL == "" {
		data.Error = "Please enter the URL of a Swagger/OpenAPI document or Swagger UI page."
		s.render(w, http.StatusUnprocessableEntity, "start", data)
		return
	}

	d, err := s.svc.Start(r.Context(), review.StartRequest{
		URL:         form.URL,
		LandingPage: form.LandingPage,
		PublisherID: form.PublisherID,
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		switch {
		case fetcher.IsFetchError(err):
			data.Error = "The document could not be fetched: " + err.Error()
		case parser.IsParseError(err):
			data.Error = "The document is not a valid Swagger/OpenAPI description: " + err.Error()
		case errors.Is(err, review.ErrInvalid):
			data.Error = "Invalid input: " + err.Error()
		default:
			status = http.StatusInternalServerError
			data.Error = "Unexpected error: " + err.Error()
			s.logger.Error("Start failed", "url", form.URL, "error", err)
		}
		s.render(w, status, "start", data)
		return
	}

	if prev, err := s.sessions.DraftID(r); err == nil && prev != d.ID {
		if err := s.svc.Delete(r.Context(), prev); err != nil {
			s.logger.Warn("Failed to delete previous draft", "id", prev, "error", err)
		}
	}

	if err := s.sessions.Issue(w, d.ID); err != nil {
		s.logger.Error("Session issue failed", "error", err)
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/review", http.StatusSeeOther)
}

// currentDraft loads the session draft. On failure it answers the request
// (redirect for pages, JSON for API calls) and returns nil.
func (s *Server) currentDraft(w http.ResponseWriter, r *http.Request, api bool) *review.Draft {
	id, err := s.sessions.DraftID(r)
	if err == nil {
		var d *review.Draft
		d, err = s.svc.Get(r.Context(), id)
		if err == nil {
			return d
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Draft load failed", "id", id, "error", err)
			if api {
				writeJSONError(w, http.StatusInternalServerError, "store_error", "The draft could not be loaded.")
			} else {
				http.Error(w, "The draft could not be loaded.", http.StatusInternalServerError)
			}
			return nil
		}
		s.sessions.Clear(w)
	}
	if api {
		writeJSONError(w, http.StatusUnauthorized, "no_session", "No active session. Please start a new conversion.")
	} else {
		http.Redirect(w, r, "/start", http.StatusSeeOther)
	}
	return nil
}

func (s *Server) reviewData(r *http.Request, d *review.Draft) pageData {
	data := s.newPageData(r.Context())
	data.Draft = d
	data.Notices = append(data.Notices, d.Notices...)
	if d.LastError != "" {
		data.Error = d.LastError
	}
	return data
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	d := s.currentDraft(w, r, false)
	if d == nil {
		return
	}
	s.render(w, http.StatusOK, "review", s.reviewData(r, d))
}

// handleSave handles POST /review.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	d := s.currentDraft(w, r, false)
	if d == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	saved, err := s.svc.Save(r.Context(), d.ID, editFromForm(r, d))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, review.ErrInvalid):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, review.ErrTerminal):
			status = http.StatusConflict
		default:
			s.logger.Error("Save failed", "id", d.ID, "error", err)
		}
		if saved == nil {
			saved = d
		}
		data := s.reviewData(r, saved)
		data.Error = err.Error()
		s.render(w, status, "review", data)
		return
	}
	http.Redirect(w, r, "/review", http.StatusSeeOther)
}

// editFromForm reads the review form. A publisher change drops the contact
// fields so the contact is rebuilt from the new publisher.
func editFromForm(r *http.Request, d *review.Draft) review.Edit {
	e := review.Edit{
		Keywords:     make(map[string][]string),
		PublisherID:  r.PostFormValue("publisher"),
		ThemeCodes:   r.PostForm["themes"],
		AccessRights: r.PostFormValue("access_rights"),
		License:      r.PostFormValue("license"),
		LandingPage:  r.PostFormValue("landing_page"),
		Version:      r.PostFormValue("version"),
	}

	contact := catalog.ContactPoint{
		HasEmail:     strings.TrimSpace(r.PostFormValue("contact_email")),
		HasTelephone: strings.TrimSpace(r.PostFormValue("contact_phone")),
	}
	for _, lang := range catalog.Languages {
		e.Title.Set(lang, r.PostFormValue("title_"+lang))
		e.Description.Set(lang, r.PostFormValue("description_"+lang))
		if _, ok := r.PostForm["keywords_"+lang]; ok {
			e.Keywords[lang] = splitKeywords(r.PostFormValue("keywords_" + lang))
		}
		contact.Fn.Set(lang, strings.TrimSpace(r.PostFormValue("contact_fn_"+lang)))
		contact.HasAddress.Set(lang, strings.TrimSpace(r.PostFormValue("contact_address_"+lang)))
		contact.Note.Set(lang, strings.TrimSpace(r.PostFormValue("contact_note_"+lang)))
	}

	if strings.TrimSpace(e.PublisherID) == d.Record.Publisher.Identifier {
		e.Contact = &contact
	}
	return e
}

// splitKeywords splits a comma, semicolon or newline separated list.
// Blank entries inside a line keep their position, since keyword i in one
// language pairs with keyword i in the others. Separators at the end of a
// line are ignored.
func splitKeywords(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), ",; ")
		if line == "" {
			continue
		}
		for _, f := range strings.Split(strings.ReplaceAll(line, ";", ","), ",") {
			out = append(out, strings.TrimSpace(f))
		}
	}
	return out
}

// recordResponse carries the enriched fields back to the page.
type recordResponse struct {
	Title       catalog.Text      `json:"title"`
	Description catalog.Text      `json:"description"`
	Keywords    []catalog.Keyword `json:"keywords"`
	ThemeCodes  []string          `json:"theme_codes"`
	Failed      []string          `json:"failed,omitempty"`
	Message     string            `json:"message,omitempty"`
}

func newRecordResponse(rec *catalog.Record) recordResponse {
	return recordResponse{
		Title:       rec.Title,
		Description: rec.Description,
		Keywords:    rec.Keywords,
		ThemeCodes:  rec.ThemeCodes,
	}
}

// handleGenerate handles POST /generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	d := s.currentDraft(w, r, true)
	if d == nil {
		return
	}

	updated, err := s.svc.Generate(r.Context(), d.ID)
	if err != nil {
		var ee *describe.EnrichmentError
		switch {
		case errors.Is(err, review.ErrTerminal):
			writeJSONError(w, http.StatusConflict, "submitted", "The record was already submitted.")
		case errors.Is(err, llm.ErrNotConfigured):
			writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "AI description is not configured.")
		case errors.As(err, &ee):
			writeJSONError(w, http.StatusBadGateway, "enrichment_failed", ee.Message)
		default:
			s.logger.Error("Generate failed", "id", d.ID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal", "Failed to generate content. Please try again.")
		}
		return
	}
	writeJSON(w, http.StatusOK, newRecordResponse(updated.Record))
}

// handleTranslate handles POST /translate. An optional form or query
// value "source" selects the source language.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	d := s.currentDraft(w, r, true)
	if d == nil {
		return
	}

	updated, err := s.svc.Translate(r.Context(), d.ID, r.FormValue("source"))
	var partial *translate.PartialError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, newRecordResponse(updated.Record))
	case updated != nil && errors.As(err, &partial):
		resp := newRecordResponse(updated.Record)
		resp.Failed = partial.Languages()
		resp.Message = fmt.Sprintf("Translation failed for: %s", strings.Join(resp.Failed, ", "))
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, review.ErrTerminal):
		writeJSONError(w, http.StatusConflict, "submitted", "The record was already submitted.")
	case errors.Is(err, deepl.ErrNotConfigured):
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Translation is not configured.")
	default:
		s.logger.Warn("Translate failed", "id", d.ID, "error", err)
		writeJSONError(w, http.StatusBadGateway, "translation_failed", "Translation failed. Please try again.")
	}
}

// handleDownload handles GET /download?format=.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	d := s.currentDraft(w, r, false)
	if d == nil {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, name, err := s.svc.Export(r.Context(), d.ID, format)
	if err != nil {
		s.logger.Error("Export failed", "id", d.ID, "format", format, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	info, _ := export.GetFormatInfo(format)
	w.Header().Set("Content-Type", info.MIMEType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type submitRequest struct {
	Token string `json:"token"`
}

type submitResponse struct {
	Status    string `json:"status"`
	DatasetID string `json:"dataset_id"`
	Message   string `json:"message"`
}

// handleSubmit handles POST /submit with {"token": "Bearer ..."} or a
// form field "token".
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	d := s.currentDraft(w, r, true)
	if d == nil {
		return
	}

	var req submitRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
		if err != nil || json.Unmarshal(body, &req) != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body.")
			return
		}
	} else {
		req.Token = r.FormValue("token")
	}

	updated, err := s.svc.Submit(r.Context(), d.ID, strings.TrimSpace(req.Token))
	if err != nil {
		var se *catalogapi.SubmissionError
		switch {
		case errors.Is(err, review.ErrTerminal):
			writeJSONError(w, http.StatusConflict, "submitted", "The record was already submitted.")
		case errors.Is(err, review.ErrSubmitDisabled):
			writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Submission is not configured.")
		case errors.Is(err, review.ErrInvalid):
			writeJSONError(w, http.StatusUnprocessableEntity, "invalid_record", err.Error())
		case errors.As(err, &se):
			writeJSONError(w, http.StatusBadGateway, "submission_failed", se.Message)
		default:
			s.logger.Error("Submit failed", "id", d.ID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal", "Submission failed.")
		}
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Status:    "submitted",
		DatasetID: updated.DatasetID,
		Message:   "Successfully uploaded to I14Y.",
	})
}

type publisherResponse struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Text catalog.Text `json:"text"`
}

// handlePublishers handles GET /api/publishers.
func (s *Server) handlePublishers(w http.ResponseWriter, r *http.Request) {
	if s.publishers == nil {
		writeJSON(w, http.StatusOK, []publisherResponse{})
		return
	}
	agents, err := s.publishers.Agents(r.Context())
	if err != nil {
		s.logger.Warn("Publisher directory unavailable", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "directory_unavailable", "The publisher directory is currently unavailable.")
		return
	}
	out := make([]publisherResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, publisherResponse{ID: a.ID, Name: a.DisplayName, Text: a.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
