// Package storage 提供项目文件存储的两种可互换实现
package storage

import (
	"strings"

	"appforge-api/pkg/errors"
)

// CleanPath 规范化斜杠分隔路径：折叠重复分隔符，去除首尾分隔符与 "." 段
// 退化根（空串或 "/"）规范化为 ""
func CleanPath(p string) string {
	segs := splitPath(p)
	return strings.Join(segs, "/")
}

// CleanRel 规范化相对路径并拒绝越界引用
func CleanRel(p string) (string, error) {
	segs := splitPath(p)
	for _, s := range segs {
		if s == ".." {
			return "", errors.New(errors.CodeInvalidParam, "path escapes project root").WithDetail(p)
		}
	}
	return strings.Join(segs, "/"), nil
}

// CleanProjectName 规范化项目名：必须是单个非空路径段
func CleanProjectName(name string) (string, error) {
	cleaned, err := CleanRel(name)
	if err != nil {
		return "", err
	}
	if cleaned == "" || strings.Contains(cleaned, "/") {
		return "", errors.New(errors.CodeInvalidParam, "invalid project name").WithDetail(name)
	}
	return cleaned, nil
}

// JoinPath 拼接并规范化路径段
func JoinPath(parts ...string) string {
	return CleanPath(strings.Join(parts, "/"))
}

// ParentChain 返回路径的全部祖先（不含自身与空根），由浅到深
// 如 "a/b/c" -> ["a", "a/b"]
func ParentChain(p string) []string {
	segs := splitPath(p)
	if len(segs) <= 1 {
		return nil
	}
	chain := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		chain = append(chain, strings.Join(segs[:i], "/"))
	}
	return chain
}

// FirstSegment 返回路径的第一个段与剩余部分
func FirstSegment(p string) (string, string) {
	cleaned := CleanPath(p)
	if cleaned == "" {
		return "", ""
	}
	if idx := strings.IndexByte(cleaned, '/'); idx >= 0 {
		return cleaned[:idx], cleaned[idx+1:]
	}
	return cleaned, ""
}

func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" || s == "." {
			continue
		}
		segs = append(segs, s)
	}
	return segs
}
