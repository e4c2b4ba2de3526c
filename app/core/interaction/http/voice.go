package http

import (
	"encoding/json"
	"io"
	"net/http"

	"lumen/app/core/auth"
	"lumen/app/core/voice"
)

type voiceRequest struct {
	Message string `json:"message"`
	Text    string `json:"text"`
}

type voiceResponse struct {
	Response string `json:"response"`
	// Message mirrors Response for clients that read either field.
	Message string `json:"message"`
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": `Lumen Voice API is running. Use POST with { "message": "your text" }`,
		})
	case http.MethodPost:
		s.handleVoiceMessage(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVoiceMessage never returns an error status: the voice client
// can only speak, so every failure becomes a spoken reply.
func (s *Server) handleVoiceMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeSpoken(w, voice.ReplyFailure)
		return
	}
	defer r.Body.Close()

	var req voiceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeSpoken(w, voice.ReplyFailure)
		return
	}

	message := req.Message
	if message == "" {
		message = req.Text
	}

	reply := s.assistant.Respond(r.Context(), auth.Identity(r.Context()), message)
	writeSpoken(w, reply)
}

func writeSpoken(w http.ResponseWriter, reply string) {
	writeJSON(w, http.StatusOK, voiceResponse{Response: reply, Message: reply})
}
