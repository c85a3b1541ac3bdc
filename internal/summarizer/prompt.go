package summarizer

import "strings"

const promptTemplate = `Analyze the following text and provide:
1. Summary (at most 200 characters)
2. Key points (bulleted list)
3. Keywords (comma-separated)

Text:
`

func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(promptTemplate) + len(text))
	b.WriteString(promptTemplate)
	b.WriteString(text)

	return b.String()
}
