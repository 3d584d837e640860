package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prepwise/prepwise/internal/chat"
)

func TestReplyFrom(t *testing.T) {
	user := chat.Message{ID: "m1", Role: chat.RoleUser, Text: "hello"}
	ai := chat.Message{ID: "m2", Role: chat.RoleAI, Text: "tell me about yourself"}

	tests := []struct {
		name    string
		res     chat.SendResult
		want    string
		wantErr bool
	}{
		{"complete", chat.SendResult{UserMessage: &user, AIMessage: &ai}, "tell me about yourself", false},
		{"missing ai message", chat.SendResult{UserMessage: &user}, "", true},
		{"missing user message", chat.SendResult{AIMessage: &ai}, "", true},
		{"empty", chat.SendResult{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := replyFrom(tt.res)
			if tt.wantErr {
				if !errors.Is(err, chat.ErrMalformedResult) {
					t.Errorf("error = %v, want chat.ErrMalformedResult", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("replyFrom: %v", err)
			}
			if got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunSend_EmptySuccessResponse(t *testing.T) {
	// A backend answering 2xx without messages must surface an error, not
	// dereference missing fields.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("PREPWISE_BACKEND_URL", srv.URL)

	err := runSend(context.Background(), "s1", "hello", "")
	if err == nil {
		t.Fatal("expected error for a success response with no messages")
	}
	if !errors.Is(err, chat.ErrMalformedResult) {
		t.Errorf("error = %v, want chat.ErrMalformedResult", err)
	}
}
