package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, args map[string]string) string {
	t.Helper()
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = args
	result, err := NewOnboardingPrompt().Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(result.Messages))
	}
	tc, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Messages[0].Content)
	}
	return tc.Text
}

func TestOnboardingPrompt(t *testing.T) {
	tests := []struct {
		name  string
		args  map[string]string
		wants []string
	}{
		{
			name:  "defaults",
			args:  nil,
			wants: []string{"user ID is 'me'", "ask me which time zone", "leads, sales, delivery, profit, unsure"},
		},
		{
			name:  "with arguments",
			args:  map[string]string{"user_id": " ana ", "timezone": "America/Lima"},
			wants: []string{"user_id='ana'", "timezone='America/Lima'", "coach_assess", "coach_daily_challenge"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := promptText(t, tt.args)
			for _, want := range tt.wants {
				if !strings.Contains(text, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
		})
	}
}

func TestOnboardingPrompt_Definition(t *testing.T) {
	def := NewOnboardingPrompt().Definition()
	if def.Name != "coach-onboarding" {
		t.Errorf("Name = %s", def.Name)
	}
	if len(def.Arguments) != 2 {
		t.Errorf("got %d arguments, want 2", len(def.Arguments))
	}
}
