package prompt

import (
	"regexp"
	"strings"
)

// Class is the expected response length category of an interview question.
type Class int

const (
	ClassStandard Class = iota
	ClassShort
	ClassMedium
	ClassLong
	ClassVeryLong
	ClassCoding
	ClassFollowUp
)

// String returns the category name used in guidance headings.
func (c Class) String() string {
	switch c {
	case ClassShort:
		return "brief"
	case ClassMedium:
		return "moderate"
	case ClassLong:
		return "detailed"
	case ClassVeryLong:
		return "comprehensive"
	case ClassCoding:
		return "technical"
	case ClassFollowUp:
		return "follow-up"
	default:
		return "standard"
	}
}

var codingPatterns = compileAll(
	`write a function`,
	`implement an algorithm`,
	`solve this problem`,
	`code this up`,
	`write some code`,
	`implement this`,
	`how would you code`,
	`write a program`,
	`coding challenge`,
	`algorithm question`,
	`data structure`,
	`big o notation`,
	`time complexity`,
	`space complexity`,
)

var veryLongPatterns = compileAll(
	`tell me about your career journey`,
	`describe your professional background`,
	`walk me through your resume`,
	`explain your long-term goals`,
	`describe your ideal work environment`,
	`tell me about your biggest achievement`,
	`describe a major project you led`,
	`explain how you would design`,
	`describe your management philosophy`,
	`tell me about your entrepreneurial`,
	`explain your vision for`,
	`describe how you would build`,
	`design a system`,
	`architect a solution`,
	`explain the entire process`,
	`walk through the complete`,
	`describe your full approach`,
)

var longPatterns = compileAll(
	`tell me about a project`,
	`describe a challenging situation`,
	`walk me through`,
	`explain how you`,
	`describe your most`,
	`tell me about a time when`,
	`give me a detailed example`,
	`describe your experience`,
	`explain your process`,
	`how would you solve`,
	`describe a complex`,
	`tell me about your background`,
	`explain your career path`,
	`describe your leadership`,
	`tell me about a conflict`,
	`explain a technical`,
	`describe how you would`,
	`walk through your thought process`,
)

var mediumPatterns = compileAll(
	`tell me about yourself`,
	`describe yourself`,
	`what are your strengths`,
	`what are your weaknesses`,
	`why do you want`,
	`what interests you`,
	`what motivates you`,
	`how do you handle`,
	`what would you do`,
	`describe a time`,
	`give me an example`,
	`how would you`,
	`what's your approach`,
	`how do you deal with`,
	`what's your experience with`,
	`what do you know about`,
)

var shortPatterns = compileAll(
	`^(yes|no|sure|okay|ok|alright)`,
	`how are you`,
	`nice to meet you`,
	`thank you`,
	`what's your name`,
	`where are you from`,
	`are you ready`,
	`any questions for me`,
	`do you have`,
	`can you`,
	`will you`,
	`would you like`,
	`quick question`,
	`briefly`,
	`in one word`,
	`yes or no`,
	`rate yourself`,
	`scale of`,
)

var followUpMarkers = []string{
	"follow up",
	"can you elaborate",
	"tell me more",
	"what else",
	"anything else",
	"expand on",
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Classify maps a question to its response length category. Coding
// questions win over everything; longer categories are checked before
// shorter ones so the most specific phrasing decides.
func Classify(question string) Class {
	q := strings.ToLower(strings.TrimSpace(question))

	switch {
	case matchAny(codingPatterns, q):
		return ClassCoding
	case matchAny(veryLongPatterns, q):
		return ClassVeryLong
	case matchAny(longPatterns, q):
		return ClassLong
	case matchAny(mediumPatterns, q):
		return ClassMedium
	case matchAny(shortPatterns, q):
		return ClassShort
	}

	for _, marker := range followUpMarkers {
		if strings.Contains(q, marker) {
			return ClassFollowUp
		}
	}
	return ClassStandard
}

// LengthGuidance renders the response length block for a question.
func LengthGuidance(question string) string {
	switch Classify(question) {
	case ClassCoding:
		return `## RESPONSE LENGTH GUIDANCE - TECHNICAL/CODING ANSWER
**Target Length**: Variable based on complexity (100-400 words)
**Structure**: This is a technical/coding question requiring systematic problem-solving.

**Required Elements**:
- **Problem Understanding**: Clarify the requirements and constraints
- **Approach Explanation**: Outline your solution strategy before coding
- **Step-by-Step Solution**: Write clean, commented code if applicable
- **Complexity Analysis**: Discuss time/space complexity
- **Edge Cases**: Consider and mention edge cases
- **Alternative Solutions**: If time permits, mention other approaches
- **Testing Strategy**: Briefly explain how you'd test this

**Tone**: Analytical, methodical, and confident in technical abilities
**Note**: If screen sharing is active, use the capture feature to analyze the coding problem`
	case ClassVeryLong:
		return `## RESPONSE LENGTH GUIDANCE - COMPREHENSIVE ANSWER
**Target Length**: 300-500 words (2-3 minutes speaking time)
**Structure**: This question requires a detailed, comprehensive response with multiple examples and thorough explanation.

**Required Elements**:
- **Detailed Introduction**: Set comprehensive context
- **Multiple Examples**: Provide 2-3 specific, detailed examples with outcomes
- **Process Explanation**: Walk through your methodology/approach step-by-step
- **Results & Impact**: Quantify achievements and explain broader implications
- **Future Application**: Connect to the role and show forward-thinking
- **Professional Depth**: Demonstrate expertise and strategic thinking

**Tone**: Professional, confident, and comprehensive while maintaining engagement`
	case ClassLong:
		return `## RESPONSE LENGTH GUIDANCE - DETAILED ANSWER
**Target Length**: 200-400 words (60-120 seconds speaking time)
**Structure**: This question needs a structured, detailed response with specific examples.

**Required Elements**:
- **Clear Setup**: Provide context and background (1-2 sentences)
- **Specific Example**: Give a detailed, relevant example from your experience
- **Action Taken**: Explain what you did and your thought process
- **Results Achieved**: Share measurable outcomes and impact
- **Learning/Growth**: What you learned or how it shaped you
- **Relevance**: Connect back to the role/company

**Tone**: Professional, engaging, and story-driven with concrete details`
	case ClassMedium:
		return `## RESPONSE LENGTH GUIDANCE - MODERATE ANSWER
**Target Length**: 100-200 words (30-60 seconds speaking time)
**Structure**: This question needs a focused, well-organized response.

**Required Elements**:
- **Direct Answer**: Address the question clearly upfront
- **Supporting Example**: Provide one relevant example or evidence
- **Brief Explanation**: Give context or reasoning (2-3 sentences)
- **Connection**: Link to the role or demonstrate value
- **Confident Close**: End with a strong, forward-looking statement

**Tone**: Professional, concise, and confident without being rushed`
	case ClassShort:
		return `## RESPONSE LENGTH GUIDANCE - BRIEF ANSWER
**Target Length**: 50-100 words (15-30 seconds speaking time)
**Structure**: This question requires a concise, direct response.

**Required Elements**:
- **Immediate Answer**: Respond directly to the question
- **Brief Support**: Add 1-2 sentences of context or reasoning if needed
- **Professional Tone**: Keep it warm but efficient
- **Clear Close**: End definitively without trailing off

**Tone**: Friendly, confident, and appropriately brief`
	case ClassFollowUp:
		return `## RESPONSE LENGTH GUIDANCE - FOLLOW-UP ANSWER
**Target Length**: 75-150 words (30-45 seconds speaking time)
**Structure**: This is a follow-up question - build on your previous answer.

**Required Elements**:
- **Reference Previous**: Acknowledge your previous response
- **Additional Detail**: Provide the specific elaboration requested
- **New Insight**: Add something valuable you didn't mention before
- **Natural Conclusion**: End without being repetitive

**Tone**: Engaging and additive - show you have more depth to offer`
	default:
		return `## RESPONSE LENGTH GUIDANCE - STANDARD ANSWER
**Target Length**: 150-250 words (45-75 seconds speaking time)
**Structure**: This question needs a balanced, professional response.

**Required Elements**:
- **Clear Opening**: Address the question directly
- **Supporting Details**: Provide relevant context and examples
- **Professional Insight**: Show your thinking and expertise
- **Strong Conclusion**: End with confidence and relevance to the role

**Tone**: Professional, engaging, and appropriately detailed`
	}
}

// ContextualAdjustments renders stage and question type adjustments based
// on how far the interview has progressed. answered is the number of
// completed exchanges so far.
func ContextualAdjustments(question string, answered int) string {
	q := strings.ToLower(question)
	var adjustments []string

	switch {
	case answered == 0:
		adjustments = append(adjustments, "**OPENING INTERVIEW**: This is your first response - make a strong first impression with confidence and enthusiasm.")
	case answered <= 3:
		adjustments = append(adjustments, "**EARLY STAGE**: Building rapport and establishing your qualifications. Be engaging and show personality.")
	case answered <= 7:
		adjustments = append(adjustments, "**MID INTERVIEW**: Deep dive phase. Provide detailed examples and demonstrate expertise thoroughly.")
	default:
		adjustments = append(adjustments, "**CLOSING STAGE**: Focus on mutual fit, show genuine interest, and ask thoughtful questions.")
	}

	if containsAny(q, "technical", "code", "algorithm", "system", "architecture") {
		adjustments = append(adjustments, "**TECHNICAL QUESTION**: Balance technical accuracy with clear explanation. Use specific examples and explain your thought process.")
	} else if containsAny(q, "team", "conflict", "leadership", "communication") {
		adjustments = append(adjustments, "**BEHAVIORAL QUESTION**: Use the STAR method (Situation, Task, Action, Result). Focus on soft skills and interpersonal abilities.")
	}

	if containsAny(q, "manage", "lead", "team") {
		adjustments = append(adjustments, "**LEADERSHIP FOCUS**: Emphasize management philosophy, team building, and strategic thinking.")
	} else if containsAny(q, "individual", "independent", "solo") {
		adjustments = append(adjustments, "**INDIVIDUAL CONTRIBUTOR**: Highlight self-direction, initiative, and individual technical skills.")
	}

	if containsAny(q, "complex", "challenging", "difficult") {
		adjustments = append(adjustments, "**COMPLEX SCENARIO**: Provide extra detail on your problem-solving approach and show analytical thinking.")
	} else if containsAny(q, "simple", "basic", "straightforward") {
		adjustments = append(adjustments, "**STRAIGHTFORWARD QUESTION**: Keep response focused and avoid over-complicating your answer.")
	}

	var b strings.Builder
	b.WriteString("\n## CONTEXTUAL ADJUSTMENTS\n")
	for _, adj := range adjustments {
		b.WriteString("- ")
		b.WriteString(adj)
		b.WriteString("\n")
	}
	return b.String()
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
