package therapy

// Response is the orchestrator's output for one successful turn.
type Response struct {
	TextResponse  string        `json:"textResponse"`
	AudioResponse string        `json:"audioResponse,omitempty"`
	FaceAnalysis  *FaceAnalysis `json:"faceAnalysis,omitempty"`
}

// Impression is the result of a first-impression capture: the face analysis
// plus a best-effort session-opening greeting.
type Impression struct {
	Analysis      FaceAnalysis `json:"analysis"`
	TextResponse  string       `json:"textResponse,omitempty"`
	AudioResponse string       `json:"audioResponse,omitempty"`
}

// PromptContext is the structured record the response generator templates
// into a single prompt.
type PromptContext struct {
	Query         string
	Emotion       string
	History       []Turn
	SearchResults []SearchResult
}
