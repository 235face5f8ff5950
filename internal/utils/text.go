package utils

import (
	"math"
	"regexp"
	"strings"
)

var symbolsRe = regexp.MustCompile(`[$€£¥¢%&*+=<>^|~@#\\_\[\]{}]`)

func CountWords(text string) int {
	return len(strings.Fields(text))
}

func EstimateTokensFromWords(wordCount int) int {
	return int(math.Round(float64(wordCount) * 1.3))
}

// EstimateTokens approximates the provider token count of text after
// stripping symbols that tokenizers tend to merge.
func EstimateTokens(text string) int {
	return EstimateTokensFromWords(CountWords(CleanUp(text)))
}

func CleanUp(text string) string {
	return symbolsRe.ReplaceAllString(text, "")
}

// Truncate shortens s to at most maxLength bytes without splitting a rune.
func Truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}

	cut := maxLength
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func CleanCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")

	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
