package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/internal/config"
	"appforge-api/internal/domain/entity"
	"appforge-api/internal/domain/repository"
	"appforge-api/pkg/errors"
)

// newTestStores 构造两种后端，行为断言对两者统一执行
func newTestStores(t *testing.T) map[string]repository.FileStore {
	t.Helper()

	disk, err := NewDiskStore(&config.DiskConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	kv, err := NewKVStore(context.Background(), &config.KVConfig{FlushDebounce: time.Hour}, newMemSnapshotStore())
	require.NoError(t, err)

	return map[string]repository.FileStore{
		"disk": disk,
		"kv":   kv,
	}
}

func TestCreateProjectScaffold(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)
			assert.Equal(t, "my-app", root)

			entries, err := store.ListFiles(ctx, root)
			require.NoError(t, err)

			dirs := map[string]bool{}
			for _, e := range entries {
				require.True(t, e.IsDir(), "scaffold entry %s should be a directory", e.Path)
				dirs[e.Path] = true
			}
			for _, want := range entity.ScaffoldDirs {
				assert.True(t, dirs[want], "missing scaffold dir %s", want)
			}
		})
	}
}

func TestCreateProjectIdempotent(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)

			require.NoError(t, store.WriteFile(ctx, root, "src/index.ts", "export {}"))

			// 重复创建不得破坏已有内容
			again, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)
			assert.Equal(t, root, again)

			content, err := store.ReadFile(ctx, root, "src/index.ts")
			require.NoError(t, err)
			assert.Equal(t, "export {}", content)
		})
	}
}

func TestWriteFileCreatesAncestors(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)

			require.NoError(t, store.WriteFile(ctx, root, "deep/nested/dir/file.txt", "hello"))

			entries, err := store.ListFiles(ctx, root)
			require.NoError(t, err)

			byPath := map[string]entity.ProjectEntry{}
			for _, e := range entries {
				byPath[e.Path] = e
			}
			assert.True(t, byPath["deep"].IsDir())
			assert.True(t, byPath["deep/nested"].IsDir())
			assert.True(t, byPath["deep/nested/dir"].IsDir())

			file, ok := byPath["deep/nested/dir/file.txt"]
			require.True(t, ok)
			assert.False(t, file.IsDir())
			assert.Equal(t, int64(len("hello")), file.Size)
		})
	}
}

func TestWriteFileOverwrite(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)

			require.NoError(t, store.WriteFile(ctx, root, "a.txt", "first"))
			require.NoError(t, store.WriteFile(ctx, root, "a.txt", "second"))

			content, err := store.ReadFile(ctx, root, "a.txt")
			require.NoError(t, err)
			assert.Equal(t, "second", content)
		})
	}
}

func TestReadFileNotFound(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)

			_, err = store.ReadFile(ctx, root, "missing.txt")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))

			// 目录按 NotFound 处理
			require.NoError(t, store.WriteFile(ctx, root, "dir/file.txt", "x"))
			_, err = store.ReadFile(ctx, root, "dir")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))
		})
	}
}

func TestListFilesMissingProject(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			_, err := store.ListFiles(context.Background(), "nope")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeProjectNotFound))
		})
	}
}

func TestListFilesNoDuplicatesNoRoot(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)
			require.NoError(t, store.WriteFile(ctx, root, "src/a.ts", "a"))
			require.NoError(t, store.WriteFile(ctx, root, "src/b.ts", "b"))

			entries, err := store.ListFiles(ctx, root)
			require.NoError(t, err)

			seen := map[string]bool{}
			for _, e := range entries {
				assert.False(t, seen[e.Path], "duplicate entry %s", e.Path)
				assert.NotEqual(t, "", e.Path, "project root must not list itself")
				seen[e.Path] = true
			}
		})
	}
}

func TestDeleteProjectIdempotent(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)
			require.NoError(t, store.WriteFile(ctx, root, "a.txt", "x"))

			require.NoError(t, store.DeleteProject(ctx, root))

			_, err = store.ListFiles(ctx, root)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeProjectNotFound))

			// 再次删除是空操作
			require.NoError(t, store.DeleteProject(ctx, root))
		})
	}
}

func TestCopyFile(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			root, err := store.CreateProject(ctx, "my-app")
			require.NoError(t, err)
			require.NoError(t, store.WriteFile(ctx, root, "src/a.ts", "shared"))

			require.NoError(t, store.CopyFile(ctx, root+"/src/a.ts", root+"/src/copy.ts"))

			content, err := store.ReadFile(ctx, root, "src/copy.ts")
			require.NoError(t, err)
			assert.Equal(t, "shared", content)

			// 源不存在
			err = store.CopyFile(ctx, root+"/missing.ts", root+"/other.ts")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))
		})
	}
}

func TestListProjects(t *testing.T) {
	for backend, store := range newTestStores(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()

			names, err := store.ListProjects(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			_, err = store.CreateProject(ctx, "alpha")
			require.NoError(t, err)
			_, err = store.CreateProject(ctx, "beta")
			require.NoError(t, err)

			names, err = store.ListProjects(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
		})
	}
}

// TestBackendEquivalence 同一操作序列在两种后端上的可见结果一致
func TestBackendEquivalence(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)

	type view struct {
		Path string
		Kind entity.EntryKind
		Size int64
	}

	results := map[string][]view{}
	for backend, store := range stores {
		root, err := store.CreateProject(ctx, "equiv")
		require.NoError(t, err)
		require.NoError(t, store.WriteFile(ctx, root, "app/_layout.tsx", "layout"))
		require.NoError(t, store.WriteFile(ctx, root, "components/Button.tsx", "button"))
		require.NoError(t, store.CopyFile(ctx, "equiv/app/_layout.tsx", "equiv/app/copy.tsx"))

		// 类型冲突的写入在两种后端上同样失败且不改变可见状态
		err = store.WriteFile(ctx, root, "app", "clobber")
		require.Error(t, err, "%s: writing over a directory must fail", backend)
		assert.True(t, errors.IsCode(err, errors.CodeStorageError))

		err = store.WriteFile(ctx, root, "app/_layout.tsx/nested.ts", "x")
		require.Error(t, err, "%s: writing through a file must fail", backend)
		assert.True(t, errors.IsCode(err, errors.CodeStorageError))

		entries, err := store.ListFiles(ctx, root)
		require.NoError(t, err)

		views := make([]view, 0, len(entries))
		for _, e := range entries {
			views = append(views, view{Path: e.Path, Kind: e.Kind, Size: e.Size})
		}
		results[backend] = views
	}

	assert.Equal(t, results["disk"], results["kv"])
}
