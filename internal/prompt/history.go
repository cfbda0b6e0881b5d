package prompt

import (
	"fmt"
	"strings"
)

// Exchange is one answered interviewer question with the generated reply.
type Exchange struct {
	Question string
	Answer   string
}

// History renders the conversation history block from the answered
// exchanges. Unanswered entries must be filtered out by the caller.
func History(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return "## CONVERSATION HISTORY\nThis is the start of the interview. No previous questions have been asked."
	}

	var b strings.Builder
	b.WriteString("## CONVERSATION HISTORY\nHere is what has been discussed so far in this interview:\n\n")

	for i, entry := range exchanges {
		fmt.Fprintf(&b, "### Exchange %d:\n", i+1)
		fmt.Fprintf(&b, "**Interviewer Asked:** %q\n", entry.Question)
		fmt.Fprintf(&b, "**You Responded:** %q\n", entry.Answer)
		if i == 0 {
			b.WriteString("*Note: This was your opening response - establish rapport and set the tone.*\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(contextualGuidance(exchanges))

	b.WriteString("**IMPORTANT:** Use this conversation history to:\n")
	b.WriteString("- Maintain consistency with previous answers\n")
	b.WriteString("- Reference earlier topics naturally when relevant (\"As I mentioned earlier...\" or \"Building on what we discussed about...\")\n")
	b.WriteString("- Show you're engaged and following the interview flow\n")
	b.WriteString("- Avoid repeating the same information unless specifically asked to elaborate\n")
	b.WriteString("- Demonstrate how different aspects of your background connect\n\n")

	return b.String()
}

func contextualGuidance(exchanges []Exchange) string {
	switch n := len(exchanges); {
	case n == 1:
		return "**CONTEXT NOTE:** You've answered one question. The interviewer is likely diving deeper or exploring different aspects of your background. Build naturally on your introduction.\n\n"
	default:
		guidance := fmt.Sprintf("**CONTEXT NOTE:** You're %d questions into the interview. Look for opportunities to connect current answers to previous topics, show consistency, and demonstrate how different aspects of your experience relate to each other.\n\n", n)
		if topics := RecentTopics(exchanges); len(topics) > 0 {
			guidance += fmt.Sprintf("**RECENT DISCUSSION THEMES:** %s. Consider how your next answer might connect to these themes.\n\n", strings.Join(topics, ", "))
		}
		return guidance
	}
}

// topicRules maps question/answer markers to discussion theme labels.
var topicRules = []struct {
	questionWords []string
	answerWords   []string
	topic         string
}{
	{[]string{"yourself", "background"}, nil, "personal background"},
	{[]string{"experience"}, []string{"experience"}, "work experience"},
	{[]string{"skill"}, []string{"skill"}, "skills and abilities"},
	{[]string{"strength", "weakness"}, nil, "strengths and areas for growth"},
	{[]string{"project"}, []string{"project"}, "specific projects"},
	{[]string{"challenge"}, []string{"challenge"}, "challenges and problem-solving"},
	{[]string{"team"}, []string{"team"}, "teamwork and collaboration"},
	{[]string{"goal", "future"}, nil, "career goals and aspirations"},
}

// RecentTopics extracts the discussion themes of the last three exchanges,
// deduplicated in first-seen order.
func RecentTopics(exchanges []Exchange) []string {
	recent := exchanges
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	seen := make(map[string]bool)
	var topics []string
	for _, entry := range recent {
		question := strings.ToLower(entry.Question)
		answer := strings.ToLower(entry.Answer)

		for _, rule := range topicRules {
			matched := containsAny(question, rule.questionWords...)
			if !matched && len(rule.answerWords) > 0 {
				matched = containsAny(answer, rule.answerWords...)
			}
			if matched && !seen[rule.topic] {
				seen[rule.topic] = true
				topics = append(topics, rule.topic)
			}
		}
	}
	return topics
}
