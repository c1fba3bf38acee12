package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/internal/config"
	"appforge-api/internal/domain/entity"
	"appforge-api/internal/infrastructure/storage"
	"appforge-api/pkg/errors"
)

// fakeGateway 可编排失败的 AI 网关替身
type fakeGateway struct {
	mu          sync.Mutex
	planOutput  string
	planErr     error
	planGate    chan struct{}
	failures    map[string]int // path -> 剩余失败次数
	attempts    map[string]int
	filePrompts []string
}

func (g *fakeGateway) Plan(ctx context.Context, prompt string) (string, error) {
	if g.planGate != nil {
		<-g.planGate
	}
	if g.planErr != nil {
		return "", g.planErr
	}
	return g.planOutput, nil
}

func (g *fakeGateway) GenerateFileContent(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filePrompts = append(g.filePrompts, prompt)

	path := promptPath(prompt)
	g.attempts[path]++
	if g.failures[path] > 0 {
		g.failures[path]--
		return "", errors.New(errors.CodeLLMCallFailed, "simulated failure")
	}
	return fmt.Sprintf("// %s attempt %d", path, g.attempts[path]), nil
}

// promptPath 从单文件提示词中取目标路径
func promptPath(prompt string) string {
	const marker = "Generate the complete content of "
	rest := strings.TrimPrefix(prompt, marker)
	if idx := strings.Index(rest, " for the project"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

func newFakeGateway(planOutput string) *fakeGateway {
	return &fakeGateway{
		planOutput: planOutput,
		failures:   map[string]int{},
		attempts:   map[string]int{},
	}
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway) (*Orchestrator, *storage.DiskStore, *Broadcaster) {
	t.Helper()
	store, err := storage.NewDiskStore(&config.DiskConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	broadcaster := NewBroadcaster()
	o := NewOrchestrator(
		store,
		gw,
		nil,
		broadcaster,
		&config.GenerationConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond},
		&config.PreviewConfig{},
	)
	return o, store, broadcaster
}

const todoPlan = `{
	"name": "Todo App",
	"description": "a simple todo app",
	"framework": "expo",
	"files": [
		{"path": "app/_layout.tsx", "kind": "file", "dependencies": []},
		{"path": "components/Button.tsx", "kind": "file", "dependencies": ["_layout"]}
	],
	"dependencies": ["expo", "react"]
}`

func drainPhases(events chan entity.GenerationProgress) []entity.Phase {
	var phases []entity.Phase
	for {
		select {
		case e := <-events:
			if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
				phases = append(phases, e.Phase)
			}
		default:
			return phases
		}
	}
}

func TestGenerateTodoAppScenario(t *testing.T) {
	gw := newFakeGateway(todoPlan)
	o, store, broadcaster := newTestOrchestrator(t, gw)

	events := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(events)

	progress, err := o.Generate(context.Background(), &entity.GenerationRequest{
		Description: "todo app",
		ProjectType: entity.ProjectTypeApp,
		Framework:   "expo",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.PhaseComplete, progress.Phase)
	assert.Equal(t, "todo-app", progress.Project)
	assert.Len(t, progress.CompletedFiles, 2)
	assert.Equal(t, []string{"app/_layout.tsx", "components/Button.tsx"}, progress.CompletedFiles)
	assert.Equal(t, 2, progress.TotalFiles)

	// 阶段严格前向推进
	phases := drainPhases(events)
	assert.Equal(t, []entity.Phase{
		entity.PhasePlanning,
		entity.PhaseExecution,
		entity.PhaseIntegration,
		entity.PhaseComplete,
	}, phases)

	// 生成的文件与集成产物都已落盘
	ctx := context.Background()
	for _, rel := range []string{"app/_layout.tsx", "components/Button.tsx", "package.json", "app.json", "README.md"} {
		content, err := store.ReadFile(ctx, "todo-app", rel)
		require.NoError(t, err, "missing %s", rel)
		assert.NotEmpty(t, content)
	}

	manifest, err := store.ReadFile(ctx, "todo-app", "package.json")
	require.NoError(t, err)
	assert.Contains(t, manifest, `"name": "todo-app"`)
}

func TestGenerateDependencyOrderAndContext(t *testing.T) {
	plan := `{
		"name": "chain",
		"framework": "expo",
		"files": [
			{"path": "A.ts", "dependencies": []},
			{"path": "B.ts", "dependencies": ["A"]},
			{"path": "C.ts", "dependencies": ["B"]}
		]
	}`
	gw := newFakeGateway(plan)
	o, _, _ := newTestOrchestrator(t, gw)

	progress, err := o.Generate(context.Background(), &entity.GenerationRequest{
		Description: "chain", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A.ts", "B.ts", "C.ts"}, progress.CompletedFiles)

	// C 的生成上下文必须包含 A 与 B
	require.Len(t, gw.filePrompts, 3)
	cPrompt := gw.filePrompts[2]
	assert.Contains(t, cPrompt, "A.ts")
	assert.Contains(t, cPrompt, "B.ts")
	assert.Contains(t, cPrompt, "Already generated files")
}

func TestGenerateRetriedContentPersisted(t *testing.T) {
	gw := newFakeGateway(todoPlan)
	// 第一个文件失败两次，第三次成功
	gw.failures["app/_layout.tsx"] = 2

	o, store, _ := newTestOrchestrator(t, gw)

	progress, err := o.Generate(context.Background(), &entity.GenerationRequest{
		Description: "todo app", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseComplete, progress.Phase)

	content, err := store.ReadFile(context.Background(), "todo-app", "app/_layout.tsx")
	require.NoError(t, err)
	assert.Equal(t, "// app/_layout.tsx attempt 3", content)
}

func TestGenerateExhaustedRetriesFailsRun(t *testing.T) {
	gw := newFakeGateway(todoPlan)
	// 第二个文件三次全部失败
	gw.failures["components/Button.tsx"] = 3

	o, _, broadcaster := newTestOrchestrator(t, gw)

	events := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(events)

	progress, err := o.Generate(context.Background(), &entity.GenerationRequest{
		Description: "todo app", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeGenerationFailed))

	assert.Equal(t, entity.PhaseError, progress.Phase)
	// 已完成列表精确包含失败文件之前生成的文件
	assert.Equal(t, []string{"app/_layout.tsx"}, progress.CompletedFiles)
	assert.NotEmpty(t, progress.Error)

	phases := drainPhases(events)
	assert.Equal(t, entity.PhaseError, phases[len(phases)-1])
}

func TestGeneratePlanningFailurePropagates(t *testing.T) {
	gw := newFakeGateway("")
	gw.planErr = errors.New(errors.CodeLLMCallFailed, "provider down")

	o, _, _ := newTestOrchestrator(t, gw)

	progress, err := o.Generate(context.Background(), &entity.GenerationRequest{
		Description: "todo app", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePlanningFailed))
	assert.Equal(t, entity.PhaseError, progress.Phase)
	assert.Empty(t, progress.CompletedFiles)
}

func TestGenerateMalformedPlanDefaultsToEmptyRun(t *testing.T) {
	// 畸形规划输出不使运行失败，走默认空文件列表
	gw := newFakeGateway("this is not json")
	o, store, _ := newTestOrchestrator(t, gw)

	progress, err := o.Generate(context.Background(), &entity.GenerationRequest{
		Description: "todo app", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseComplete, progress.Phase)
	assert.Empty(t, progress.CompletedFiles)

	// 集成产物仍然写入
	_, err = store.ReadFile(context.Background(), "generated-app", "package.json")
	require.NoError(t, err)
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	gw := newFakeGateway("{}")
	gw.planGate = make(chan struct{})

	o, _, _ := newTestOrchestrator(t, gw)

	runID, err := o.Start(context.Background(), &entity.GenerationRequest{
		Description: "todo app", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	// 第一个运行仍在规划阶段阻塞，第二次启动被拒绝
	_, err = o.Start(context.Background(), &entity.GenerationRequest{
		Description: "another", ProjectType: entity.ProjectTypeApp, Framework: "expo",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRunInProgress))

	close(gw.planGate)

	require.Eventually(t, func() bool {
		progress, err := o.Progress(runID)
		return err == nil && progress.Phase.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProgressUnknownRun(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, newFakeGateway("{}"))

	_, err := o.Progress("nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRunNotFound))
}
