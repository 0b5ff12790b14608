package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/qcatchat/catchat/internal/logging"
)

// maxUploadSize bounds speech-to-text uploads (the transcription API limit).
const maxUploadSize = 25 << 20

// TextToSpeechRequest is the body of POST /text-to-speech.
type TextToSpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) speechReady(w http.ResponseWriter) bool {
	if s.speech == nil || !s.speech.IsConfigured() {
		s.respondError(w, http.StatusServiceUnavailable, "speech service is not configured")
		return false
	}
	return true
}

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	if !s.speechReady(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}

	file, header, err := formAudio(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	text, err := s.speech.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

// formAudio returns the upload under "audio", or "file" as older clients send.
func formAudio(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("audio")
	if err == nil {
		return file, header, nil
	}
	return r.FormFile("file")
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	if !s.speechReady(w) {
		return
	}

	var req TextToSpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	audio, err := s.speech.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	defer audio.Body.Close()

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="speech.mp3"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio.Body); err != nil {
		logging.Warn("streaming speech audio: %v", err)
	}
}
