package research

import (
	"context"
	"fmt"
	"strings"
)

// TopicLabeler adapts a structured generator to cluster label generation.
type TopicLabeler struct {
	gen StructuredGenerator
}

func NewTopicLabeler(gen StructuredGenerator) *TopicLabeler {
	return &TopicLabeler{gen: gen}
}

// TopicLabel produces a short label from a sample of member titles.
func (l *TopicLabeler) TopicLabel(ctx context.Context, titles []string) (string, error) {
	if l == nil || l.gen == nil {
		return "", fmt.Errorf("no generator configured")
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("no titles to label")
	}

	var out struct {
		Label string `json:"label"`
	}
	prompt := "Produce a short topic label for these headlines:\n" + strings.Join(titles, "\n")
	if err := l.gen.GenerateStructured(ctx, prompt, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Label) == "" {
		return "", fmt.Errorf("generator returned empty label")
	}
	return out.Label, nil
}
