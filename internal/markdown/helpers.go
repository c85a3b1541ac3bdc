package markdown

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for one text message, in UTF-8 runes.
const MaxMessageLength = 4096

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\_*[]()~>#+-=|{}.!` + "`"

var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0
	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Split cuts text into chunks of at most limit runes, preferring line breaks,
// then spaces. Escape sequences are never split.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if text == "" {
		return nil
	}

	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := cutIndex(text, limit)
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}

	return chunks
}

func cutIndex(text string, limit int) int {
	end := 0
	for n := 0; n < limit; n++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}

	window := text[:end]
	if i := strings.LastIndexByte(window, '\n'); i > 0 {
		return i + 1
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return i + 1
	}

	// Do not leave a dangling escape at the end of a chunk.
	trailing := len(window) - len(strings.TrimRight(window, `\`))
	if trailing%2 == 1 && end > 1 {
		return end - 1
	}

	return end
}
