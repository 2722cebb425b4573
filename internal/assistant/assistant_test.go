package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mamiland-backend-go/internal/models"
)

func TestBuildPromptWithoutProfile(t *testing.T) {
	history := []Turn{
		{Role: models.RoleUser, Content: "سلام"},
		{Role: models.RoleAssistant, Content: "سلام عزیزم"},
		{Role: models.RoleUser, Content: "سوال دارم"},
	}
	got := BuildPrompt(nil, history)

	if !strings.HasPrefix(got, persona) {
		t.Errorf("BuildPrompt() does not start with the persona")
	}
	if strings.Contains(got, "User Profile:") {
		t.Errorf("BuildPrompt() included a profile block without a profile")
	}
	wantTail := "\n\nChat History:\nUser: سلام\nAssistant: سلام عزیزم\nUser: سوال دارم"
	if !strings.HasSuffix(got, wantTail) {
		t.Errorf("BuildPrompt() tail = %q, want %q", got[len(got)-len(wantTail):], wantTail)
	}
}

func TestBuildPromptProfileBlock(t *testing.T) {
	age, week := 28, 0
	no := false
	profile := &models.UserProfile{
		Name:          "Sara",
		Age:           &age,
		IsPregnant:    &no,
		PregnancyWeek: &week,
		UserGroup:     models.GroupBreastfeedingMother,
		IsComplete:    true,
	}
	got := BuildPrompt(profile, nil)

	for _, want := range []string{
		"- Name: Sara\n",
		"- Age: 28\n",
		"- Pregnancy Status: غیر باردار\n",
		"- Pregnancy Week: مشخص نشده\n",
		"- Medical Conditions: هیچی\n",
		"- User Group: مادر شیرده\n",
		profileHint,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildPrompt() missing %q", want)
		}
	}

	profile.IsComplete = false
	if strings.Contains(BuildPrompt(profile, nil), "User Profile:") {
		t.Errorf("BuildPrompt() included an incomplete profile")
	}
}

func TestClientComplete(t *testing.T) {
	var gotText, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer": "  جواب  "}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	answer, err := client.Complete(context.Background(), "سلام & خوبی؟")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "جواب" {
		t.Errorf("Complete() = %q, want trimmed answer", answer)
	}
	if gotText != "سلام & خوبی؟" {
		t.Errorf("server saw text = %q", gotText)
	}
	if gotAccept != "application/json" {
		t.Errorf("server saw Accept = %q", gotAccept)
	}
}

func TestClientCompleteFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"empty answer", http.StatusOK, `{"answer": "   "}`, ErrEmptyAnswer},
		{"missing answer", http.StatusOK, `{}`, ErrEmptyAnswer},
		{"server error", http.StatusBadGateway, `oops`, nil},
		{"not json", http.StatusOK, `<html>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Complete(context.Background(), "x")
			if err == nil {
				t.Fatal("Complete() error = nil, want failure")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Complete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

type stubCompleter struct {
	answer string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func TestRelayReply(t *testing.T) {
	tests := []struct {
		name string
		stub *stubCompleter
		want string
	}{
		{"answer", &stubCompleter{answer: "جواب"}, "جواب"},
		{"empty", &stubCompleter{err: ErrEmptyAnswer}, NoAnswerReply},
		{"unreachable", &stubCompleter{err: errors.New("dial tcp: refused")}, UnavailableReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := []Turn{{Role: models.RoleUser, Content: "سلام"}}
			got := Relay{AI: tt.stub}.Reply(context.Background(), nil, history)
			if got != tt.want {
				t.Errorf("Reply() = %q, want %q", got, tt.want)
			}
			if !strings.HasSuffix(tt.stub.prompt, "User: سلام") {
				t.Errorf("prompt sent = %q", tt.stub.prompt)
			}
		})
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"answer":"late"}`))
	}))
	defer srv.Close()

	got := Relay{AI: NewClient(srv.URL, 20*time.Millisecond)}.Reply(context.Background(), nil, nil)
	if got != UnavailableReply {
		t.Errorf("Reply() = %q, want %q", got, UnavailableReply)
	}
}
