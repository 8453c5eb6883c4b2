package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

func TestNarrator_Narrate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		messages := req["messages"].([]interface{})
		require.Len(t, messages, 2)
		user := messages[1].(map[string]interface{})["content"].(string)
		assert.Contains(t, user, "Maria Lopez")
		assert.Contains(t, user, "Bonus: $87.50")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Great month at Goleta.  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	n := NewNarrator(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil, zap.NewNop())

	summary, err := n.Narrate(context.Background(), &entity.ReportResult{
		EmployeeName: "Maria Lopez",
		StoreName:    "Goleta",
		StoreNumber:  1257,
		TotalBonus:   87.5,
		IsQualified:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, "Great month at Goleta.", summary)
}

func TestNarrator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	n := NewNarrator(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil, zap.NewNop())

	_, err := n.Narrate(context.Background(), &entity.ReportResult{})
	assert.Error(t, err)
}

func TestLoadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`report_narrative:
  temperature: 0.2
  system: "Be brief."
`), 0o644))

	prompts, err := LoadPrompts(path)

	require.NoError(t, err)
	assert.Equal(t, float32(0.2), prompts.ReportNarrative.Temperature)
	assert.Equal(t, "Be brief.", prompts.ReportNarrative.System)
	assert.NotEmpty(t, prompts.ReportNarrative.UserTemplate, "unset fields keep defaults")

	_, err = LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadPrompts_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"broken template", "report_narrative:\n  user_template: \"{{.EmployeeName\"\n", "report_narrative"},
		{"zero tokens", "report_narrative:\n  max_tokens: 0\n", "max_tokens must be positive"},
		{"blank system", "report_narrative:\n  system: \"  \"\n", "system prompt is empty"},
		{"hot temperature", "report_narrative:\n  temperature: 3.5\n", "temperature must be between 0 and 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prompts.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadPrompts(path)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPrompt_RenderRequiresCompile(t *testing.T) {
	_, err := (&Prompt{UserTemplate: "x"}).Render(nil)
	assert.EqualError(t, err, "prompt template not compiled")
}
