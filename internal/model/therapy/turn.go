package therapy

import "time"

// Speaker identifies which side of the conversation produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "User"
	SpeakerAssistant Speaker = "Assistant"
)

// Turn persists one exchange unit for context/audit. Turns are immutable
// once appended to history.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn stamps a turn with the current time.
func NewTurn(speaker Speaker, message string) Turn {
	return Turn{
		Speaker:   speaker,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
