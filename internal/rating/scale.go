package rating

import (
	"math"
	"regexp"
	"strconv"

	"github.com/wgomg/rater/internal/utils"
)

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// FromSimilarity maps a cosine similarity onto the rating scale. Negative
// similarity counts as unrelated.
func FromSimilarity(similarity float64) int {
	return fromFloat(similarity * 100)
}

// Parse extracts the first number from a model reply, rounds it and clamps
// it to the rating scale.
func Parse(reply string) (int, error) {
	cleaned := utils.CleanCodeBlock(reply)

	match := numberRe.FindString(cleaned)
	if match == "" {
		return 0, &ParseError{Reply: utils.Truncate(reply, 200)}
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, &ParseError{Reply: utils.Truncate(reply, 200)}
	}

	return fromFloat(value), nil
}

func fromFloat(v float64) int {
	v = math.Round(v)
	switch {
	case math.IsNaN(v) || v <= MinRating:
		return MinRating
	case v >= MaxRating:
		return MaxRating
	default:
		return int(v)
	}
}
