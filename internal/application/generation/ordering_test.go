package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"appforge-api/internal/domain/entity"
)

func paths(specs []entity.FileSpec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Path)
	}
	return out
}

func TestOrderFileSpecsDependencyChain(t *testing.T) {
	specs := []entity.FileSpec{
		{Path: "components/C.tsx", Dependencies: []string{"B"}},
		{Path: "components/B.tsx", Dependencies: []string{"A"}},
		{Path: "components/A.tsx"},
	}

	ordered := OrderFileSpecs(specs)
	assert.Equal(t, []string{"components/A.tsx", "components/B.tsx", "components/C.tsx"}, paths(ordered))
}

func TestOrderFileSpecsLooseFragmentMatch(t *testing.T) {
	// 依赖是松散片段，匹配路径包含该片段的任何其他文件
	specs := []entity.FileSpec{
		{Path: "app/_layout.tsx", Dependencies: []string{"services/api"}},
		{Path: "services/api.ts"},
	}

	ordered := OrderFileSpecs(specs)
	assert.Equal(t, []string{"services/api.ts", "app/_layout.tsx"}, paths(ordered))
}

func TestOrderFileSpecsCycle(t *testing.T) {
	// 成环时不死循环，每个文件只输出一次
	specs := []entity.FileSpec{
		{Path: "a.ts", Dependencies: []string{"b"}},
		{Path: "b.ts", Dependencies: []string{"a"}},
	}

	ordered := OrderFileSpecs(specs)
	assert.ElementsMatch(t, []string{"a.ts", "b.ts"}, paths(ordered))
	assert.Len(t, ordered, 2)
}

func TestOrderFileSpecsUndeclaredDepsKeepPlanOrder(t *testing.T) {
	specs := []entity.FileSpec{
		{Path: "one.ts"},
		{Path: "two.ts"},
		{Path: "three.ts"},
	}

	ordered := OrderFileSpecs(specs)
	assert.Equal(t, []string{"one.ts", "two.ts", "three.ts"}, paths(ordered))
}

func TestOrderFileSpecsUnknownFragmentIgnored(t *testing.T) {
	specs := []entity.FileSpec{
		{Path: "a.ts", Dependencies: []string{"does-not-exist"}},
		{Path: "b.ts"},
	}

	ordered := OrderFileSpecs(specs)
	assert.Equal(t, []string{"a.ts", "b.ts"}, paths(ordered))
}
