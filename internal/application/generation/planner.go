package generation

import (
	"context"
	"encoding/json"
	"strings"

	"appforge-api/internal/domain/entity"
	"appforge-api/pkg/logger"
)

// planEnvelope 用于解析 LLM 返回的规划 JSON 的信封
type planEnvelope struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Framework       string            `json:"framework"`
	Files           []fileEnvelope    `json:"files"`
	Dependencies    []string          `json:"dependencies"`
	DevDependencies []string          `json:"dev_dependencies"`
	Scripts         map[string]string `json:"scripts"`
}

// fileEnvelope 规划中的单个文件条目
type fileEnvelope struct {
	Path         string   `json:"path"`
	Kind         string   `json:"kind"`
	Dependencies []string `json:"dependencies"`
}

const defaultProjectName = "generated-app"

// buildPlanPrompt 由生成请求构造规划提示词
func buildPlanPrompt(req *entity.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("Plan a ")
	b.WriteString(string(req.ProjectType))
	b.WriteString(" project for the following request.\n\n")
	b.WriteString("Request: ")
	b.WriteString(req.Description)
	b.WriteString("\nFramework: ")
	b.WriteString(req.Framework)
	if len(req.Features) > 0 {
		b.WriteString("\nFeatures: ")
		b.WriteString(strings.Join(req.Features, ", "))
	}
	if req.Styling != "" {
		b.WriteString("\nStyling: ")
		b.WriteString(req.Styling)
	}
	b.WriteString("\n\nRespond with a single JSON object: ")
	b.WriteString(`{"name", "description", "framework", "files": [{"path", "kind", "dependencies"}], `)
	b.WriteString(`"dependencies", "dev_dependencies", "scripts"}. `)
	b.WriteString("List files in build order where possible; dependencies are loose path fragments.")
	return b.String()
}

// buildFilePrompt 由规划、文件声明与已完成文件列表构造单文件生成提示词
func buildFilePrompt(plan *entity.ProjectPlan, spec entity.FileSpec, completed []string) string {
	var b strings.Builder
	b.WriteString("Generate the complete content of ")
	b.WriteString(spec.Path)
	b.WriteString(" for the project \"")
	b.WriteString(plan.Name)
	b.WriteString("\" (")
	b.WriteString(plan.Framework)
	b.WriteString(").\n\nProject description: ")
	b.WriteString(plan.Description)
	if len(spec.Dependencies) > 0 {
		b.WriteString("\nThis file depends on: ")
		b.WriteString(strings.Join(spec.Dependencies, ", "))
	}
	if len(completed) > 0 {
		b.WriteString("\nAlready generated files: ")
		b.WriteString(strings.Join(completed, ", "))
	}
	b.WriteString("\n\nRespond with the raw file content only, no markdown fences.")
	return b.String()
}

// parsePlan 解析规划输出，缺失或畸形字段取默认值而不是使运行失败
func parsePlan(ctx context.Context, raw string, req *entity.GenerationRequest) *entity.ProjectPlan {
	plan := &entity.ProjectPlan{
		Name:        defaultProjectName,
		Description: req.Description,
		Framework:   req.Framework,
		Files:       []entity.FileSpec{},
	}

	extracted := extractJSONObject(raw)
	if strings.TrimSpace(extracted) == "" {
		logger.Warn(ctx, "empty plan output, using defaults")
		return plan
	}

	var env planEnvelope
	if err := json.Unmarshal([]byte(extracted), &env); err != nil {
		logger.Warn(ctx, "failed to unmarshal plan output, using defaults", "error", err.Error())
		return plan
	}

	if name := strings.TrimSpace(env.Name); name != "" {
		plan.Name = name
	}
	if desc := strings.TrimSpace(env.Description); desc != "" {
		plan.Description = desc
	}
	if fw := strings.TrimSpace(env.Framework); fw != "" {
		plan.Framework = fw
	}
	plan.Dependencies = env.Dependencies
	plan.DevDependencies = env.DevDependencies
	plan.Scripts = env.Scripts

	seen := make(map[string]bool, len(env.Files))
	for _, f := range env.Files {
		path := strings.TrimSpace(f.Path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		kind := entity.EntryKindFile
		if strings.EqualFold(strings.TrimSpace(f.Kind), string(entity.EntryKindDirectory)) {
			kind = entity.EntryKindDirectory
		}
		plan.Files = append(plan.Files, entity.FileSpec{
			Path:         path,
			Kind:         kind,
			Dependencies: f.Dependencies,
		})
	}

	return plan
}

// Slugify 将项目名转为 lowercase-hyphenated 形式
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // 抑制前导连字符
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = defaultProjectName
	}
	return slug
}
