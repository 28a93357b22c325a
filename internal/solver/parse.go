package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/studypal/server/internal/domain"
)

// ErrMalformedResponse indicates model output that could not be parsed
// into the expected questions list. The whole extraction is treated as
// failed; there is no partial recovery.
var ErrMalformedResponse = errors.New("malformed model response")

// StripCodeFences removes a leading/trailing Markdown code fence that
// models sometimes wrap around JSON output.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseQuestions parses raw model output into the extracted question
// list. The payload must be a JSON object with a non-empty "questions"
// array of {id, question} objects.
func ParseQuestions(raw string) ([]domain.Question, error) {
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Questions == nil {
		return nil, fmt.Errorf("%w: missing questions field", ErrMalformedResponse)
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("%w: empty questions list", ErrMalformedResponse)
	}
	for i, q := range out.Questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("%w: question %d missing id or text", ErrMalformedResponse, i)
		}
	}
	return out.Questions, nil
}
