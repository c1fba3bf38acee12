// Package entity 定义领域实体
package entity

// FileSpec 计划中的一个文件或目录
// Dependencies 为松散的路径片段引用，仅用于排序，不要求精确匹配
type FileSpec struct {
	Path         string    `json:"path"`
	Kind         EntryKind `json:"kind"`
	Dependencies []string  `json:"dependencies,omitempty"`
}

// ProjectPlan 由 LLM 规划产出的中间产物
// 每次生成运行产出一份，编排器消费，创建后不再变更
type ProjectPlan struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Framework       string            `json:"framework"`
	Files           []FileSpec        `json:"files"`
	Dependencies    []string          `json:"dependencies,omitempty"`
	DevDependencies []string          `json:"dev_dependencies,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
}

// FileCount 计划中文件条目（非目录）的数量
func (p *ProjectPlan) FileCount() int {
	n := 0
	for _, f := range p.Files {
		if f.Kind != EntryKindDirectory {
			n++
		}
	}
	return n
}
