package generation

import (
	"strings"

	"appforge-api/internal/domain/entity"
)

// OrderFileSpecs 按依赖关系对规划中的文件做拓扑排序
//
// 依赖声明是松散的路径片段：只要另一个文件的路径包含该片段，
// 就视为被依赖方，先于当前文件输出。已访问集合同时承担
// 环保护的职责，成环时按规划顺序截断。
func OrderFileSpecs(specs []entity.FileSpec) []entity.FileSpec {
	ordered := make([]entity.FileSpec, 0, len(specs))
	visited := make(map[string]bool, len(specs))

	var visit func(spec entity.FileSpec)
	visit = func(spec entity.FileSpec) {
		if visited[spec.Path] {
			return
		}
		visited[spec.Path] = true
		for _, dep := range spec.Dependencies {
			frag := strings.TrimSpace(dep)
			if frag == "" {
				continue
			}
			for _, other := range specs {
				if other.Path == spec.Path {
					continue
				}
				if strings.Contains(other.Path, frag) {
					visit(other)
				}
			}
		}
		ordered = append(ordered, spec)
	}

	for _, spec := range specs {
		visit(spec)
	}
	return ordered
}
