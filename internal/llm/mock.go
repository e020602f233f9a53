package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// MockProvider produces a deterministic summary without any network
// call. Categorization keys off keywords in the conversation so tests
// and demo runs get varied distributions.
type MockProvider struct{}

func (MockProvider) Name() string { return ProviderMock }

func (MockProvider) Close() error { return nil }

func (MockProvider) Summarize(ctx context.Context, comments []string, instructions string) (string, error) {
	issue := "User unable to display smart tip in preview mode"
	resolution := "Reselected the smart tip element and added necessary CSS selector"
	category := "Element Selection"
	resolutionType := "Reselection"

	combined := strings.ToLower(strings.Join(comments, " "))
	if strings.Contains(combined, "css") || strings.Contains(combined, "selector") {
		category = "CSS Selector"
		resolutionType = "CSS Addition"
	} else if strings.Contains(combined, "visibility") {
		category = "Visibility Rules"
		resolutionType = "Configuration Change"
	}

	out, err := json.Marshal(map[string]string{
		"issue":           issue,
		"resolution":      resolution,
		"category":        category,
		"resolution_type": resolutionType,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
