// Package directory 提供组织目录：部门 ID 到名称的解析。
// 未注册的 ID 解析为独立的"未指派"分桶，不作为错误处理。
package directory

import "sync"

// UnassignedBucket 未指派/无法解析部门时使用的分桶名
const UnassignedBucket = "SIN ASIGNAR"

// Directory 部门名称解析接口
type Directory interface {
	// Resolve 返回部门名称；id 为 nil 或未注册时返回 UnassignedBucket。
	Resolve(id *int64) string
}

// memoryDirectory Directory 的内存实现
type memoryDirectory struct {
	mu    sync.RWMutex
	names map[int64]string
}

// NewMemoryDirectory 创建部门目录
func NewMemoryDirectory(names map[int64]string) Directory {
	copied := make(map[int64]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return &memoryDirectory{names: copied}
}

func (d *memoryDirectory) Resolve(id *int64) string {
	if id == nil {
		return UnassignedBucket
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	name, ok := d.names[*id]
	if !ok {
		return UnassignedBucket
	}
	return name
}
