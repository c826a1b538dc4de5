package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	flat := Flatten(map[string]any{
		"name": "deploy",
		"repository": map[string]any{
			"full_name": "acme/widgets",
			"private":   false,
		},
		"labels": []any{"bug", "urgent"},
		"empty":  map[string]any{},
	})

	assert.Equal(t, "deploy", flat["name"])
	assert.Equal(t, "acme/widgets", flat["repository.full_name"])
	assert.Equal(t, false, flat["repository.private"])
	assert.Equal(t, "bug", flat["labels.0"])
	assert.Equal(t, "urgent", flat["labels.1"])
	assert.Contains(t, flat, "empty")
}

func TestExtractByService_Gmail(t *testing.T) {
	extracted := ExtractByService(map[string]any{
		"from":    "alice@example.com",
		"subject": "Invoice",
		"snippet": "Please find attached",
		"id":      12345,
	}, "gmail")

	assert.Equal(t, "alice@example.com", extracted["gmail.sender"])
	assert.Equal(t, "Invoice", extracted["gmail.subject"])
	assert.Equal(t, "Please find attached", extracted["gmail.body"])
	assert.Equal(t, "12345", extracted["gmail.message_id"])
	assert.NotContains(t, extracted, "gmail.recipient")
}

func TestExtractByService_GitHubNestedFallbacks(t *testing.T) {
	extracted := ExtractByService(map[string]any{
		"repository": map[string]any{"full_name": "acme/widgets"},
		"sender":     map[string]any{"login": "octocat"},
		"action":     "opened",
		"number":     7,
	}, "github")

	assert.Equal(t, "acme/widgets", extracted["github.repo"])
	assert.Equal(t, "octocat", extracted["github.author"])
	assert.Equal(t, "opened", extracted["github.action"])
	assert.Equal(t, 7, extracted["github.number"])
}

func TestExtractByService_CalendarStartTime(t *testing.T) {
	extracted := ExtractByService(map[string]any{
		"summary": "Standup",
		"start":   map[string]any{"dateTime": "2026-08-28T09:00:00Z"},
	}, "calendar")

	assert.Equal(t, "Standup", extracted["calendar.title"])
	assert.Equal(t, "2026-08-28T09:00:00Z", extracted["calendar.start_time"])
}

func TestExtractByService_UnknownServicePrefixesFlattened(t *testing.T) {
	extracted := ExtractByService(map[string]any{
		"payload": map[string]any{"kind": "ping"},
	}, "customhook")

	assert.Equal(t, "ping", extracted["customhook.payload.kind"])
}

// Running extraction over already-extracted data must be a no-op copy.
func TestExtractByService_Idempotent(t *testing.T) {
	first := ExtractByService(map[string]any{
		"temperature": 21.5,
		"condition":   "cloudy",
		"now":         "2026-08-28T10:00:00Z",
	}, "weather")

	second := ExtractByService(first, "weather")

	assert.Equal(t, first, second)
}

func TestExtractByService_EmptyInput(t *testing.T) {
	assert.Empty(t, ExtractByService(nil, "gmail"))
	assert.Empty(t, ExtractGmail(nil))
	assert.Empty(t, ExtractWeather(map[string]any{}))
}

func TestResolve(t *testing.T) {
	vars := map[string]any{
		"gmail.sender":        "alice@example.com",
		"weather.temperature": 21.5,
	}

	resolved := Resolve("From {{gmail.sender}} at {{ weather.temperature }} degrees", vars)
	assert.Equal(t, "From alice@example.com at 21.5 degrees", resolved)

	resolved = Resolve("Missing {{unknown.var}} stays", vars)
	assert.Equal(t, "Missing {{unknown.var}} stays", resolved)
}

func TestSubstituteParams_TypePreservation(t *testing.T) {
	vars := map[string]any{
		"weather.temperature": 21.5,
		"github.number":       7,
		"flags":               map[string]any{"urgent": true},
	}

	params := SubstituteParams(map[string]any{
		"temp":    "{{weather.temperature}}",
		"message": "PR #{{github.number}} updated",
		"nested": map[string]any{
			"config": "{{flags}}",
		},
		"list":    []any{"{{github.number}}", "static"},
		"untyped": 42,
	}, vars)

	assert.Equal(t, 21.5, params["temp"])
	assert.Equal(t, "PR #7 updated", params["message"])

	nested, ok := params["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"urgent": true}, nested["config"])

	list, ok := params["list"].([]any)
	require.True(t, ok)
	assert.Equal(t, 7, list[0])
	assert.Equal(t, "static", list[1])

	assert.Equal(t, 42, params["untyped"])
}

func TestSubstituteParams_DoesNotMutateInput(t *testing.T) {
	params := map[string]any{
		"nested": map[string]any{"value": "{{x}}"},
	}

	_ = SubstituteParams(params, map[string]any{"x": "replaced"})

	nested := params["nested"].(map[string]any)
	assert.Equal(t, "{{x}}", nested["value"])
}
