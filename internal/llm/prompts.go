package llm

import "fmt"

const RatingSystemPrompt = "You are an AI who has a multi-dimensional vector representation of all the words and terms in the English language. " +
	"Rate the answer from 0 to 100, where 0 means completely unrelated and 100 means exact match. " +
	"Reply with the rating as a single integer and nothing else: no words, no punctuation, no explanation."

func RatingUserPrompt(correctAnswer, userAnswer string) string {
	return fmt.Sprintf(
		"Rate the following answer from 0 to 100:\nCorrect Answer: %s\nUser Answer: %s\nOnly respond with a number between 0 and 100.",
		correctAnswer,
		userAnswer,
	)
}
