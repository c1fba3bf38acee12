package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/internal/domain/entity"
)

func testRequest() *entity.GenerationRequest {
	return &entity.GenerationRequest{
		Description: "todo app",
		ProjectType: entity.ProjectTypeApp,
		Framework:   "expo",
	}
}

func TestParsePlanFull(t *testing.T) {
	raw := "Here is the plan:\n```json\n" + `{
		"name": "Todo App",
		"description": "a simple todo app",
		"framework": "expo",
		"files": [
			{"path": "app/_layout.tsx", "kind": "file", "dependencies": []},
			{"path": "components", "kind": "directory"},
			{"path": "components/Button.tsx", "kind": "file", "dependencies": ["_layout"]}
		],
		"dependencies": ["expo", "react"],
		"scripts": {"start": "expo start"}
	}` + "\n```"

	plan := parsePlan(context.Background(), raw, testRequest())

	assert.Equal(t, "Todo App", plan.Name)
	assert.Equal(t, "a simple todo app", plan.Description)
	assert.Equal(t, "expo", plan.Framework)
	require.Len(t, plan.Files, 3)
	assert.Equal(t, entity.EntryKindDirectory, plan.Files[1].Kind)
	assert.Equal(t, []string{"_layout"}, plan.Files[2].Dependencies)
	assert.Equal(t, 2, plan.FileCount())
	assert.Equal(t, []string{"expo", "react"}, plan.Dependencies)
}

func TestParsePlanMalformedFallsBackToDefaults(t *testing.T) {
	req := testRequest()

	for _, raw := range []string{"", "not json at all", `{"files": "oops"}`} {
		plan := parsePlan(context.Background(), raw, req)
		assert.Equal(t, "generated-app", plan.Name)
		assert.Equal(t, req.Description, plan.Description)
		assert.Equal(t, req.Framework, plan.Framework)
		assert.Empty(t, plan.Files)
	}
}

func TestParsePlanMissingFieldsDefaulted(t *testing.T) {
	plan := parsePlan(context.Background(), `{"name": "x"}`, testRequest())
	assert.Equal(t, "x", plan.Name)
	assert.Equal(t, "expo", plan.Framework)
	assert.NotNil(t, plan.Files)
	assert.Empty(t, plan.Files)
}

func TestParsePlanDropsDuplicateAndEmptyPaths(t *testing.T) {
	raw := `{"files": [
		{"path": "a.ts"},
		{"path": "a.ts"},
		{"path": "  "},
		{"path": "b.ts"}
	]}`

	plan := parsePlan(context.Background(), raw, testRequest())
	require.Len(t, plan.Files, 2)
	assert.Equal(t, "a.ts", plan.Files[0].Path)
	assert.Equal(t, "b.ts", plan.Files[1].Path)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Todo App", "todo-app"},
		{"My  Cool_App!", "my-cool-app"},
		{"already-slugged", "already-slugged"},
		{"  Spaces  ", "spaces"},
		{"!!!", "generated-app"},
		{"App2Go", "app2go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "slugify %q", tt.in)
	}
}
