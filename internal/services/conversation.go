package services

import (
	"context"
	"strconv"
	"strings"

	"mamiland-backend-go/internal/assistant"
	"mamiland-backend-go/internal/metrics"
	"mamiland-backend-go/internal/models"
	"mamiland-backend-go/internal/onboarding"

	"github.com/jmoiron/sqlx"
)

// Conversation handles one chat turn: onboarding answers while the profile is
// incomplete, AI replies afterwards. Both sides of every turn are stored.
type Conversation struct {
	DB           *sqlx.DB
	Relay        assistant.Relay
	HistoryLimit int
}

type SendRequest struct {
	UserID        string
	SessionID     string
	Message       string
	ClientHistory []assistant.Turn
}

type SendResult struct {
	Reply      string
	SessionID  string
	Onboarding bool
	Step       onboarding.Step
	Options    []string
	Profile    models.UserProfile
}

type OnboardingState struct {
	Step    onboarding.Step
	Prompt  string
	Options []string
	Profile models.UserProfile
}

// State reports where the user is in the questionnaire.
func (c Conversation) State(ctx context.Context, userID string) (OnboardingState, error) {
	profile, err := GetProfile(ctx, c.DB, userID)
	if err != nil {
		return OnboardingState{}, err
	}
	step := onboarding.CurrentStep(profile)
	state := OnboardingState{Step: step, Options: onboarding.Options(step), Profile: profile}
	if step != onboarding.StepComplete {
		state.Prompt = onboarding.Prompt(step, profile)
	}
	return state, nil
}

func (c Conversation) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return SendResult{}, ErrBadRequest(MsgMessageRequired)
	}
	profile, err := GetProfile(ctx, c.DB, req.UserID)
	if err != nil {
		return SendResult{}, err
	}
	onboardingTurn := !onboarding.Complete(profile)

	sessionID := req.SessionID
	created := false
	if sessionID == "" {
		session, err := CreateChatSession(ctx, c.DB, req.UserID, DefaultSessionTitle)
		if err != nil {
			return SendResult{}, err
		}
		sessionID, created = session.ID, true
	} else if _, err := GetChatSession(ctx, c.DB, req.UserID, sessionID); err != nil {
		return SendResult{}, err
	}

	if created && onboardingTurn {
		// Keep the question the user is answering in the transcript.
		prompt := onboarding.Prompt(onboarding.CurrentStep(profile), profile)
		if _, err := SaveChatMessage(ctx, c.DB, sessionID, req.UserID, models.RoleAssistant, prompt); err != nil {
			return SendResult{}, err
		}
	}
	if _, err := SaveChatMessage(ctx, c.DB, sessionID, req.UserID, models.RoleUser, message); err != nil {
		return SendResult{}, err
	}

	result := SendResult{SessionID: sessionID, Onboarding: onboardingTurn}
	if onboardingTurn {
		fromStep := onboarding.CurrentStep(profile)
		turn := onboarding.Advance(profile, message)
		metrics.OnboardingTurns.WithLabelValues(strconv.Itoa(int(fromStep)), strconv.FormatBool(turn.Advanced)).Inc()
		if turn.Advanced {
			saved, err := SaveProfile(ctx, c.DB, turn.Profile)
			if err != nil {
				return SendResult{}, err
			}
			turn.Profile = saved
		}
		result.Reply = turn.Reply
		result.Step = turn.Step
		result.Options = turn.Options
		result.Profile = turn.Profile
	} else {
		history, err := c.history(ctx, req, sessionID, created, message)
		if err != nil {
			return SendResult{}, err
		}
		result.Reply = c.Relay.Reply(ctx, &profile, history)
		result.Step = onboarding.StepComplete
		result.Profile = profile
	}

	if _, err := SaveChatMessage(ctx, c.DB, sessionID, req.UserID, models.RoleAssistant, result.Reply); err != nil {
		return SendResult{}, err
	}
	return result, nil
}

// history builds the transcript sent to the AI. Stored messages are
// authoritative; history supplied by the client is only used to seed a
// session that was just created.
func (c Conversation) history(ctx context.Context, req SendRequest, sessionID string, created bool, message string) ([]assistant.Turn, error) {
	var turns []assistant.Turn
	if created {
		for _, turn := range req.ClientHistory {
			content := strings.TrimSpace(turn.Content)
			if content == "" || (turn.Role != models.RoleUser && turn.Role != models.RoleAssistant) {
				continue
			}
			turns = append(turns, assistant.Turn{Role: turn.Role, Content: content})
		}
		// Clients usually send the list with the new message already on the end.
		if n := len(turns); n == 0 || turns[n-1].Role != models.RoleUser || turns[n-1].Content != message {
			turns = append(turns, assistant.Turn{Role: models.RoleUser, Content: message})
		}
	} else {
		stored, err := ListChatMessages(ctx, c.DB, req.UserID, sessionID)
		if err != nil {
			return nil, err
		}
		turns = make([]assistant.Turn, 0, len(stored))
		for _, msg := range stored {
			turns = append(turns, assistant.Turn{Role: msg.Role, Content: msg.Content})
		}
	}
	return TrimHistory(turns, c.HistoryLimit), nil
}

// TrimHistory keeps the last limit turns. A non-positive limit keeps all.
func TrimHistory(turns []assistant.Turn, limit int) []assistant.Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
