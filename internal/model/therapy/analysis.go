package therapy

// FaceAnalysis carries the emotion signal derived from an image. Emotion is
// always populated; the remaining fields are present only when the classifier
// was asked for them and succeeded.
type FaceAnalysis struct {
	Emotion           string   `json:"emotion"`
	Age               *int     `json:"age,omitempty"`
	Gender            *string  `json:"gender,omitempty"`
	GenderProbability *float64 `json:"genderProbability,omitempty"`
}

// EmotionNeutral is the safe default when no image was supplied or analysis
// failed.
const EmotionNeutral = "neutral"

// NeutralFace returns the fallback analysis used whenever no usable signal
// exists.
func NeutralFace() FaceAnalysis {
	return FaceAnalysis{Emotion: EmotionNeutral}
}
