package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
)

// TherapistSystemPrompt is the fixed persona block prepended to every model
// invocation.
const TherapistSystemPrompt = `You are an empathetic and professional AI therapist with expertise in emotional support and mental health counseling. Your role is to:

1. Show genuine empathy and understanding for the user's emotional state
2. Provide supportive, non-judgmental responses
3. Use therapeutic techniques appropriately
4. Maintain professional boundaries while being warm and approachable
5. Recognize signs of serious issues that require professional human intervention

Remember:
- Always validate emotions before offering suggestions
- Use reflective listening techniques
- Focus on the person's emotional experience
- Be mindful of cultural sensitivities
- Ensure responses are trauma-informed
- Maintain confidentiality and trust

Important: If you detect signs of immediate crisis or harm, provide crisis hotline information and encourage seeking immediate professional help.

Current emotional context will be provided with each interaction to help you tailor your response appropriately.`

// BuildPrompt templates a structured turn context into the single user
// prompt sent to the model. It is pure so the prompt shape can be asserted
// without any network call.
func BuildPrompt(pc therapy.PromptContext) string {
	var b strings.Builder

	b.WriteString("Current Context:\n")
	fmt.Fprintf(&b, "- User's emotional state: %s\n", pc.Emotion)
	fmt.Fprintf(&b, "- User's query: %s\n", pc.Query)

	b.WriteString("\nConversation History:\n")
	b.WriteString(formatHistory(pc.History))

	if len(pc.SearchResults) > 0 {
		b.WriteString("\n\nAdditional Information:\n")
		b.WriteString(formatSearchResults(pc.SearchResults))
	}

	b.WriteString(`

Please provide a therapeutic response that:
1. Acknowledges the user's emotional state
2. Addresses their query
3. References previous conversation when relevant
4. Incorporates relevant information from search results if appropriate
5. Maintains a supportive and empathetic tone`)

	return b.String()
}

// BuildGreetingPrompt templates a first-impression analysis into the
// request for a session-opening introduction.
func BuildGreetingPrompt(analysis therapy.FaceAnalysis) string {
	var b strings.Builder

	b.WriteString("Based on the image analysis, I can see that:\n")
	fmt.Fprintf(&b, "- Emotional State: %s\n", analysis.Emotion)
	if analysis.Age != nil {
		fmt.Fprintf(&b, "- Approximate Age: %d\n", *analysis.Age)
	}
	if analysis.Gender != nil {
		fmt.Fprintf(&b, "- Gender: %s", *analysis.Gender)
		if analysis.GenderProbability != nil {
			fmt.Fprintf(&b, " (confidence: %.2f)", *analysis.GenderProbability)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nPlease generate a warm, professional introduction for our therapy session.")
	return b.String()
}

// formatHistory serializes the recent-history suffix as speaker-labeled
// lines in chronological order.
func formatHistory(turns []therapy.Turn) string {
	if len(turns) == 0 {
		return "(no previous conversation)"
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Speaker, turn.Message))
	}
	return strings.Join(lines, "\n")
}

func formatSearchResults(results []therapy.SearchResult) string {
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}
