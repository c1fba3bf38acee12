package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/pkg/errors"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a/b/c", "a/b/c"},
		{"leading slash", "/a/b", "a/b"},
		{"trailing slash", "a/b/", "a/b"},
		{"double slashes", "a//b///c", "a/b/c"},
		{"dot segments", "./a/./b", "a/b"},
		{"root", "/", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPath(tt.in))
		})
	}
}

func TestCleanRelRejectsEscape(t *testing.T) {
	_, err := CleanRel("../outside")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = CleanRel("a/../../b")
	require.Error(t, err)

	cleaned, err := CleanRel("src/app.tsx")
	require.NoError(t, err)
	assert.Equal(t, "src/app.tsx", cleaned)
}

func TestCleanProjectName(t *testing.T) {
	name, err := CleanProjectName("my-app")
	require.NoError(t, err)
	assert.Equal(t, "my-app", name)

	name, err = CleanProjectName("/my-app/")
	require.NoError(t, err)
	assert.Equal(t, "my-app", name)

	_, err = CleanProjectName("")
	require.Error(t, err)

	_, err = CleanProjectName("a/b")
	require.Error(t, err)
}

func TestParentChain(t *testing.T) {
	assert.Nil(t, ParentChain("a"))
	assert.Equal(t, []string{"a"}, ParentChain("a/b"))
	assert.Equal(t, []string{"a", "a/b"}, ParentChain("a/b/c"))
}

func TestFirstSegment(t *testing.T) {
	root, rest := FirstSegment("proj/src/app.tsx")
	assert.Equal(t, "proj", root)
	assert.Equal(t, "src/app.tsx", rest)

	root, rest = FirstSegment("proj")
	assert.Equal(t, "proj", root)
	assert.Equal(t, "", rest)

	root, rest = FirstSegment("")
	assert.Equal(t, "", root)
	assert.Equal(t, "", rest)
}
