// Package readtime estimates how long a post takes to read.
package readtime

import (
	"strings"
	"unicode/utf16"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// Words returns the word estimate for content. A heading contributes its
// character length (UTF-16 units), not its word count; body text contributes
// its whitespace-delimited tokens.
func Words(content []model.ContentBlock) int {
	total := 0
	for _, block := range content {
		total += len(utf16.Encode([]rune(block.Heading)))
		for _, span := range block.Body {
			total += len(strings.Fields(span.Text))
		}
	}
	return total
}

// Estimate returns the reading time in whole minutes, rounded up.
func Estimate(content []model.ContentBlock) int {
	words := Words(content)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
