package builtin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestKnowledgeSearchExecute(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req kbSearchRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Query != "how do I reset my password?" {
			t.Errorf("query = %q", req.Query)
		}
		w.Write([]byte(`{"answer":"Use the reset link on the login page."}`))
	}))
	defer srv.Close()

	tool := NewKnowledgeSearchTool(true, srv.URL, "test-key", 5*time.Second, 0)
	got, err := tool.Execute(context.Background(), map[string]any{"question": "how do I reset my password?"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got, "reset link") {
		t.Fatalf("unexpected result: %s", got)
	}
}

func TestKnowledgeSearchDisabled(t *testing.T) {
	t.Parallel()

	tool := NewKnowledgeSearchTool(false, "http://localhost", "", 0, 0)
	if _, err := tool.Execute(context.Background(), map[string]any{"question": "q"}); err == nil {
		t.Fatal("disabled tool must error")
	}
}

func TestKnowledgeSearchMissingQuestion(t *testing.T) {
	t.Parallel()

	tool := NewKnowledgeSearchTool(true, "http://localhost", "", 0, 0)
	if _, err := tool.Execute(context.Background(), map[string]any{"question": "   "}); err == nil {
		t.Fatal("blank question must error")
	}
	if _, err := tool.Execute(context.Background(), nil); err == nil {
		t.Fatal("missing question must error")
	}
}

func TestKnowledgeSearchNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	tool := NewKnowledgeSearchTool(true, srv.URL, "", 5*time.Second, 0)
	if _, err := tool.Execute(context.Background(), map[string]any{"question": "q"}); err == nil {
		t.Fatal("non-2xx must error")
	}
}
