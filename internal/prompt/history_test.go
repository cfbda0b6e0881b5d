package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEmpty(t *testing.T) {
	got := History(nil)
	assert.Contains(t, got, "start of the interview")
}

func TestHistoryRendersExchanges(t *testing.T) {
	got := History([]Exchange{
		{Question: "Tell me about yourself", Answer: "I am a backend engineer."},
		{Question: "Why this company?", Answer: "I admire the product."},
	})

	assert.Contains(t, got, "### Exchange 1:")
	assert.Contains(t, got, "### Exchange 2:")
	assert.Contains(t, got, `**Interviewer Asked:** "Tell me about yourself"`)
	assert.Contains(t, got, `**You Responded:** "I admire the product."`)
	assert.Contains(t, got, "opening response")
	assert.Contains(t, got, "2 questions into the interview")
}

func TestHistorySingleExchangeGuidance(t *testing.T) {
	got := History([]Exchange{{Question: "Tell me about yourself", Answer: "Sure."}})
	assert.Contains(t, got, "You've answered one question")
}

func TestRecentTopics(t *testing.T) {
	topics := RecentTopics([]Exchange{
		{Question: "Tell me about yourself", Answer: "I lead a team of five."},
		{Question: "Describe a project you shipped", Answer: "A billing service."},
		{Question: "What are your goals?", Answer: "Growing into a staff role."},
	})

	assert.Contains(t, topics, "personal background")
	assert.Contains(t, topics, "specific projects")
	assert.Contains(t, topics, "teamwork and collaboration")
	assert.Contains(t, topics, "career goals and aspirations")
}

func TestRecentTopicsOnlyLastThree(t *testing.T) {
	topics := RecentTopics([]Exchange{
		{Question: "Describe a project", Answer: "x"},
		{Question: "How are you", Answer: "fine"},
		{Question: "How are you", Answer: "fine"},
		{Question: "How are you", Answer: "fine"},
	})
	assert.NotContains(t, topics, "specific projects")
}

func TestRecentTopicsDeduplicates(t *testing.T) {
	topics := RecentTopics([]Exchange{
		{Question: "Describe your skills", Answer: "Go"},
		{Question: "Any other skills?", Answer: "SQL"},
	})

	count := 0
	for _, topic := range topics {
		if topic == "skills and abilities" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
