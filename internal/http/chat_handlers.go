package httpapi

import (
	"net/http"
	"strings"

	"mamiland-backend-go/internal/assistant"
	"mamiland-backend-go/internal/models"
	"mamiland-backend-go/internal/services"
	"mamiland-backend-go/internal/suggestions"

	"github.com/go-chi/chi/v5"
)

const maxSuggestions = 10

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SaveMessageRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
	Role      string `json:"role"`
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SendRequest struct {
	Message   string           `json:"message"`
	Messages  []HistoryMessage `json:"messages"`
	SessionID string           `json:"sessionId"`
}

type SendResponse struct {
	Reply      string     `json:"reply"`
	SessionID  string     `json:"sessionId"`
	Onboarding bool       `json:"onboarding"`
	Step       int        `json:"step"`
	Options    []string   `json:"options"`
	Profile    ProfileDTO `json:"profile"`
}

func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	items, err := services.ListChatSessions(r.Context(), s.DB, CurrentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]SessionDTO{"sessions": sessionDTOs(items)})
}

func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	session, err := services.CreateChatSession(r.Context(), s.DB, CurrentUserID(r), req.Title)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sessionId": session.ID})
}

func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteChatSession(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "sessionId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) SaveMessage(w http.ResponseWriter, r *http.Request) {
	var req SaveMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Content) == "" || req.Role == "" {
		WriteError(w, http.StatusBadRequest, services.MsgIncompleteMessage)
		return
	}
	msg, err := services.SaveChatMessage(r.Context(), s.DB, req.SessionID, CurrentUserID(r), models.Role(req.Role), req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": messageDTO(msg)})
}

func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	items, err := services.ListChatMessages(r.Context(), s.DB, CurrentUserID(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]MessageDTO, 0, len(items))
	for _, m := range items {
		out = append(out, messageDTO(m))
	}
	WriteJSON(w, http.StatusOK, map[string][]MessageDTO{"messages": out})
}

// Send runs one conversation turn: an onboarding answer or a question for the
// assistant, depending on the profile.
func (s *Server) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, services.MsgMessageRequired)
		return
	}
	res, err := s.Conversation.Send(r.Context(), services.SendRequest{
		UserID:        CurrentUserID(r),
		SessionID:     strings.TrimSpace(req.SessionID),
		Message:       req.Message,
		ClientHistory: clientTurns(req.Messages),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	options := res.Options
	if options == nil {
		options = []string{}
	}
	WriteJSON(w, http.StatusOK, SendResponse{
		Reply:      res.Reply,
		SessionID:  res.SessionID,
		Onboarding: res.Onboarding,
		Step:       int(res.Step),
		Options:    options,
		Profile:    profileDTO(res.Profile),
	})
}

// clientTurns keeps only well-formed history entries.
func clientTurns(items []HistoryMessage) []assistant.Turn {
	turns := make([]assistant.Turn, 0, len(items))
	for _, m := range items {
		role := models.Role(m.Role)
		if role != models.RoleUser && role != models.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, assistant.Turn{Role: role, Content: m.Content})
	}
	return turns
}

func (s *Server) Onboarding(w http.ResponseWriter, r *http.Request) {
	state, err := s.Conversation.State(r.Context(), CurrentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	options := state.Options
	if options == nil {
		options = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"step":     int(state.Step),
		"prompt":   state.Prompt,
		"options":  options,
		"complete": state.Profile.IsComplete,
		"profile":  profileDTO(state.Profile),
	})
}

func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	count := parseInt(r.URL.Query().Get("count"), suggestions.DefaultCount)
	if count <= 0 {
		count = suggestions.DefaultCount
	}
	if count > maxSuggestions {
		count = maxSuggestions
	}
	profile, err := services.GetProfile(r.Context(), s.DB, CurrentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	questions := s.Picker.Pick(suggestions.GroupFromProfile(profile), count)
	WriteJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}
