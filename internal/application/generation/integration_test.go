package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/internal/domain/entity"
)

func TestResolveVersion(t *testing.T) {
	assert.Equal(t, "18.2.0", ResolveVersion("react"))
	// 未知包回退默认版本
	assert.Equal(t, "latest", ResolveVersion("some-unknown-package"))
}

func TestRenderPackageManifest(t *testing.T) {
	plan := &entity.ProjectPlan{
		Name:         "Todo App",
		Description:  "a todo app",
		Framework:    "expo",
		Dependencies: []string{"react", "totally-unknown-pkg"},
	}

	raw, err := renderPackageManifest(plan)
	require.NoError(t, err)

	var manifest map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &manifest))

	assert.Equal(t, "todo-app", manifest["name"])
	assert.Equal(t, "1.0.0", manifest["version"])
	assert.Equal(t, "expo-router/entry", manifest["main"])

	deps, ok := manifest["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "18.2.0", deps["react"])
	assert.Equal(t, "latest", deps["totally-unknown-pkg"])

	scripts, ok := manifest["scripts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "expo start", scripts["start"])
}

func TestRenderAppDescriptorOnlyForExpo(t *testing.T) {
	expo := &entity.ProjectPlan{Name: "Todo App", Framework: "expo"}
	raw, ok := renderAppDescriptor(expo)
	require.True(t, ok)

	var descriptor map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &descriptor))
	inner, ok := descriptor["expo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "todo-app", inner["slug"])

	// 非 expo 框架没有 app.json
	_, ok = renderAppDescriptor(&entity.ProjectPlan{Name: "x", Framework: "react"})
	assert.False(t, ok)
}

func TestRenderReadmeListsGeneratedPaths(t *testing.T) {
	plan := &entity.ProjectPlan{Name: "Todo App", Description: "a todo app", Framework: "expo"}

	readme := renderReadme(plan, []string{"components/Button.tsx", "app/_layout.tsx"})
	assert.Contains(t, readme, "# Todo App")
	assert.Contains(t, readme, "`app/_layout.tsx`")
	assert.Contains(t, readme, "`components/Button.tsx`")
}
