package rating

type Request struct {
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
}

type Response struct {
	Rating int `json:"rating"`
}

// FieldPresence reports which required fields were supplied.
type FieldPresence struct {
	UserAnswer    bool `json:"userAnswer"`
	CorrectAnswer bool `json:"correctAnswer"`
}

const (
	MinRating = 0
	MaxRating = 100
)
