package assist

import (
	"fmt"
	"strings"
)

const codeSystemPromptTemplate = `You are a code assistant specialized in analyzing, revising, and explaining code. The user will provide code in %s, and you need to %s it.

If the action is "revise":
- Fix any bugs or issues
- Improve code quality, readability, and efficiency
- Use modern best practices and idioms
- Return only the revised code without explanations

If the action is "explain":
- Provide a clear, concise explanation of what the code does
- Break down complex parts
- Mention any potential issues or improvements
- Format your explanation in markdown

Format your response based on the action requested.`

func codeSystemPrompt(language, action string) string {
	return fmt.Sprintf(codeSystemPromptTemplate, language, action)
}

func codeUserPrompt(code, language, action string) string {
	verb := "Explain"
	if action == ActionRevise {
		verb = "Revise"
	}
	return fmt.Sprintf("%s this %s code:\n\n```%s\n%s\n```", verb, language, language, code)
}

const researchSystemPrompt = `You are a research assistant. The user will provide a topic, and you need to:
1. Create a comprehensive summary of the topic
2. Generate 3-5 relevant sources with titles, summaries, and hypothetical URLs
3. Format your response as JSON with the following structure:
{
  "summary": "comprehensive summary text",
  "sources": [
    {
      "title": "Source title",
      "summary": "Brief description of the source",
      "source": "Publication name",
      "url": "https://example.com/source",
      "date": "YYYY-MM-DD"
    }
  ]
}`

const suggestionsSystemPrompt = "You are a travel recommendation system that provides suggestions in valid JSON format. Always return a well-formed JSON array with the suggestions."

func suggestionsPrompt(location, query string, interests []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "As a travel recommendation system, help me find interesting places to visit in %s. ", location)
	if query != "" {
		fmt.Fprintf(&sb, "I'm specifically interested in %s. ", query)
	}
	if len(interests) > 0 {
		fmt.Fprintf(&sb, "I generally enjoy %s. ", strings.Join(interests, ", "))
	}
	sb.WriteString("Please suggest 5 specific places I should visit, giving a brief reason for each. Return the response in a JSON format with a top-level 'suggestions' array containing objects with 'name', 'type', and 'reason' fields.")
	return sb.String()
}

const narrativeSystemPrompt = "You are a helpful travel guide that creates enticing, accurate descriptions of places."

func narrativePrompt(name, placeType, location string, rating float64, types []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate a concise, enticing description for %q, which is a %s located in %s. ", name, placeType, location)
	if rating > 0 {
		fmt.Fprintf(&sb, "It has a rating of %.1f out of 5. ", rating)
	}
	if len(types) > 0 {
		fmt.Fprintf(&sb, "It's categorized as: %s. ", strings.Join(types, ", "))
	}
	sb.WriteString("Highlight what makes this place special, its atmosphere, and what visitors might experience. Keep the description under 100 words.")
	return sb.String()
}

const tipsSystemPrompt = "You are a travel expert who provides concise, helpful tips."

func tipsPrompt(name, placeType, location string) string {
	return fmt.Sprintf("Based on this %s called %q in %s, suggest 3 quick tips for visitors. Keep each tip under 15 words and format as a simple bullet list.", placeType, name, location)
}
