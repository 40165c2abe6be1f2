package lessons

// MaxSourceChars caps the passage text sent to the model for quiz writing.
const MaxSourceChars = 15000

// Config holds generation settings.
type Config struct {
	PassageMaxTokens  int
	QuizMaxTokens     int
	FeedbackMaxTokens int
	TutorMaxTokens    int
	Temperature       float64
}

// DefaultConfig returns sensible defaults for generation.
func DefaultConfig() Config {
	return Config{
		PassageMaxTokens:  1200,
		QuizMaxTokens:     2048,
		FeedbackMaxTokens: 256,
		TutorMaxTokens:    512,
		Temperature:       0.5,
	}
}
