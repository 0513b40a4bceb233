// Package prompts implements MCP prompt handlers for the business coach.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/bizcoach/internal/constraint"
)

// OnboardingPrompt handles the coach-onboarding MCP prompt.
// It walks the AI through the onboarding questions and the first challenge.
type OnboardingPrompt struct{}

// NewOnboardingPrompt creates an OnboardingPrompt.
func NewOnboardingPrompt() *OnboardingPrompt {
	return &OnboardingPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OnboardingPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("coach-onboarding",
		mcp.WithPromptDescription(
			"Onboard a business owner: ask the assessment questions one at a time, "+
				"show a live score, save the assessment and hand out the first daily challenge.",
		),
		mcp.WithArgument("user_id",
			mcp.ArgumentDescription("Identifier to save the assessment under"),
		),
		mcp.WithArgument("timezone",
			mcp.ArgumentDescription("IANA time zone for challenge deadlines, e.g. America/Bogota"),
		),
	)
}

// Handle processes the coach-onboarding prompt request.
func (p *OnboardingPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	userID := "me"
	timezone := ""
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["user_id"]; ok && strings.TrimSpace(v) != "" {
			userID = strings.TrimSpace(v)
		}
		if v, ok := args["timezone"]; ok {
			timezone = strings.TrimSpace(v)
		}
	}

	tzStep := "ask me which time zone I am in"
	if timezone != "" {
		tzStep = fmt.Sprintf("use timezone='%s'", timezone)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Business coach onboarding for %s", userID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to get set up with the business coach. My user ID is '%s'.\n\n"+
						"Please:\n"+
						"1. Ask me one question at a time: what my business does, my biggest challenge, my prior experience, "+
						"my monthly revenue (an exact figure or a band), and whether I know my CAC, LTV, churn and gross margin\n"+
						"2. After each answer, call `coach_preview_score` with user_id='%s' and everything I have said so far, "+
						"and tell me my running score in one line\n"+
						"3. Ask me which constraint holds my business back most: %s\n"+
						"4. For deadlines, %s\n"+
						"5. Call `coach_assess` with all my answers and explain my level and where I should go next\n"+
						"6. Call `coach_daily_challenge` and present my first challenge\n\n"+
						"Keep it conversational. Do not ask for numbers I have said I do not know.",
					userID, userID, strings.Join(constraint.Choices(), ", "), tzStep,
				)),
			},
		},
	}, nil
}
