package generation

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"appforge-api/internal/domain/entity"
	"appforge-api/internal/domain/repository"
)

// knownVersions 常用依赖的固定版本表，未知依赖回退到 fallbackVersion
var knownVersions = map[string]string{
	"expo":                     "~51.0.0",
	"expo-router":              "~3.5.0",
	"expo-status-bar":          "~1.12.0",
	"react":                    "18.2.0",
	"react-dom":                "18.2.0",
	"react-native":             "0.74.5",
	"react-native-web":         "~0.19.10",
	"react-native-safe-area-context": "4.10.5",
	"react-native-screens":     "3.31.1",
	"@react-navigation/native": "^6.1.17",
	"zustand":                  "^4.5.2",
	"axios":                    "^1.7.2",
	"nativewind":               "^2.0.11",
	"tailwindcss":              "3.3.2",
	"typescript":               "~5.3.3",
	"@babel/core":              "^7.24.0",
	"@types/react":             "~18.2.79",
	"jest":                     "^29.7.0",
	"jest-expo":                "~51.0.0",
}

const fallbackVersion = "latest"

// ResolveVersion 查固定版本表，未知包返回回退版本
func ResolveVersion(pkg string) string {
	if v, ok := knownVersions[pkg]; ok {
		return v
	}
	return fallbackVersion
}

func resolveVersionMap(pkgs []string) map[string]string {
	if len(pkgs) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(pkgs))
	for _, p := range pkgs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out[p] = ResolveVersion(p)
	}
	return out
}

// packageManifest 对应生成到项目根的 package.json
type packageManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Main            string            `json:"main,omitempty"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func defaultScripts(framework string) map[string]string {
	if strings.EqualFold(framework, "expo") {
		return map[string]string{
			"start":   "expo start",
			"android": "expo start --android",
			"ios":     "expo start --ios",
			"web":     "expo start --web",
		}
	}
	return map[string]string{"start": "npm run dev"}
}

// renderPackageManifest 合成 package.json 内容
func renderPackageManifest(plan *entity.ProjectPlan) (string, error) {
	scripts := plan.Scripts
	if len(scripts) == 0 {
		scripts = defaultScripts(plan.Framework)
	}
	manifest := packageManifest{
		Name:            Slugify(plan.Name),
		Version:         "1.0.0",
		Scripts:         scripts,
		Dependencies:    resolveVersionMap(plan.Dependencies),
		DevDependencies: resolveVersionMap(plan.DevDependencies),
	}
	if strings.EqualFold(plan.Framework, "expo") {
		manifest.Main = "expo-router/entry"
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// renderAppDescriptor 合成框架描述文件，仅 expo 需要 app.json
func renderAppDescriptor(plan *entity.ProjectPlan) (string, bool) {
	if !strings.EqualFold(plan.Framework, "expo") {
		return "", false
	}
	descriptor := map[string]any{
		"expo": map[string]any{
			"name":        plan.Name,
			"slug":        Slugify(plan.Name),
			"version":     "1.0.0",
			"orientation": "portrait",
			"scheme":      Slugify(plan.Name),
			"platforms":   []string{"ios", "android", "web"},
		},
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return "", false
	}
	return string(data) + "\n", true
}

// renderReadme 合成 README，列出全部已生成路径
func renderReadme(plan *entity.ProjectPlan, generated []string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(plan.Name)
	b.WriteString("\n\n")
	if plan.Description != "" {
		b.WriteString(plan.Description)
		b.WriteString("\n\n")
	}
	b.WriteString("Framework: ")
	b.WriteString(plan.Framework)
	b.WriteString("\n\n## Generated files\n\n")
	paths := append([]string(nil), generated...)
	sort.Strings(paths)
	for _, p := range paths {
		b.WriteString("- `")
		b.WriteString(p)
		b.WriteString("`\n")
	}
	return b.String()
}

// writeIntegrationFiles 将集成阶段的固定文件写入项目根
func writeIntegrationFiles(ctx context.Context, store repository.FileStore, root string, plan *entity.ProjectPlan, generated []string) error {
	manifest, err := renderPackageManifest(plan)
	if err != nil {
		return err
	}
	if err := store.WriteFile(ctx, root, "package.json", manifest); err != nil {
		return err
	}
	if descriptor, ok := renderAppDescriptor(plan); ok {
		if err := store.WriteFile(ctx, root, "app.json", descriptor); err != nil {
			return err
		}
	}
	return store.WriteFile(ctx, root, "README.md", renderReadme(plan, generated))
}
