package rating

import (
	"strings"

	"github.com/wgomg/rater/internal/utils"
)

// Validate trims both answers in place and checks they are present and,
// when maxTokens is positive, within the estimated token budget.
func Validate(req *Request, maxTokens int) error {
	req.UserAnswer = strings.TrimSpace(req.UserAnswer)
	req.CorrectAnswer = strings.TrimSpace(req.CorrectAnswer)

	presence := FieldPresence{
		UserAnswer:    req.UserAnswer != "",
		CorrectAnswer: req.CorrectAnswer != "",
	}
	if !presence.UserAnswer || !presence.CorrectAnswer {
		return &ValidationError{Message: "Missing required fields", Details: presence}
	}

	if maxTokens > 0 {
		if utils.EstimateTokens(req.UserAnswer) > maxTokens ||
			utils.EstimateTokens(req.CorrectAnswer) > maxTokens {
			return &ValidationError{Message: "Answer too long"}
		}
	}

	return nil
}
