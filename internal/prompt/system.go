// Package prompt assembles the coaching prompt sent to the language model
// during a rehearsal session. The prompt combines the candidate's resume,
// the conversation so far, and per-question length guidance.
package prompt

import (
	"fmt"
	"strings"

	"github.com/interviewace/apiserver/types"
)

const basePrompt = `You are an expert interview coach and AI assistant helping a candidate during a live job interview. Your role is to provide professional, authentic, and contextually relevant responses that showcase the candidate's strengths and experience.

CORE PRINCIPLES:
1. Generate responses that sound natural and conversational
2. Use specific examples from the candidate's background when relevant
3. Maintain a confident but humble tone
4. Structure answers clearly and concisely
5. Focus on demonstrating relevant skills and experience

RESPONSE FORMAT:
Provide a clear, well-structured answer that directly addresses the interview question. The response should be professional yet personable, demonstrating the candidate's qualifications for the role.`

// SessionContext carries everything the system prompt is built from.
type SessionContext struct {
	Company           string
	Position          string
	Language          string
	SimpleEnglish     bool
	ExtraInstructions string
	Resume            *types.Resume
	Exchanges         []Exchange
}

// System assembles the full system prompt for one interviewer question.
func System(ctx SessionContext, question string) string {
	var b strings.Builder

	b.WriteString(basePrompt)
	b.WriteString("\n\n")

	if ctx.Position != "" {
		fmt.Fprintf(&b, "ROLE CONTEXT: The candidate is interviewing for a %s position", ctx.Position)
		if ctx.Company != "" {
			fmt.Fprintf(&b, " at %s", ctx.Company)
		}
		b.WriteString(" and should tailor responses to demonstrate relevant skills and experience for this role.\n\n")
	}

	b.WriteString("## CANDIDATE BACKGROUND\n")
	b.WriteString(ResumeContext(ctx.Resume, ctx.Position))
	b.WriteString("\n\n")

	b.WriteString(History(ctx.Exchanges))
	b.WriteString("\n")

	b.WriteString(LengthGuidance(question))
	b.WriteString("\n")

	b.WriteString(ContextualAdjustments(question, len(ctx.Exchanges)))

	if ctx.SimpleEnglish {
		b.WriteString("\n**LANGUAGE NOTE:** Use simple, clear English. Avoid idioms and complex vocabulary; the candidate prefers plain phrasing.\n")
	} else if ctx.Language != "" && ctx.Language != "en" {
		fmt.Fprintf(&b, "\n**LANGUAGE NOTE:** Respond in the candidate's preferred language (%s).\n", ctx.Language)
	}

	if strings.TrimSpace(ctx.ExtraInstructions) != "" {
		fmt.Fprintf(&b, "\n**ADDITIONAL INSTRUCTIONS FROM THE CANDIDATE:**\n%s\n", strings.TrimSpace(ctx.ExtraInstructions))
	}

	return b.String()
}

// ScreenAnalysis builds the prompt used when a captured screenshot of a
// coding problem is sent for analysis.
func ScreenAnalysis(ctx SessionContext) string {
	return fmt.Sprintf(`You are analyzing a screenshot from a coding interview screen share. The candidate is interviewing for %q at %q.

ANALYSIS TASKS:
1. **Identify the Problem**: Look for coding problems, algorithm challenges, or technical questions on the screen
2. **Provide Solution Guidance**: Give step-by-step guidance without writing the full solution

RESPONSE FORMAT:
- **Problem Identification**: What coding problem or question is visible?
- **Approach**: Recommended solution strategy
- **Implementation Tips**: Specific coding guidance or pseudocode
- **Complexity Notes**: Expected time/space complexity

Analyze the screenshot and provide helpful coding interview guidance.`, ctx.Position, ctx.Company)
}
