// Package execution 承接独立摄取管道产出的实际执行台账。
// 台账按 (产品编码, 年度) 索引，只读消费；缺失键按全零处理。
package execution

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

// Source 实际执行台账的只读查询接口
type Source interface {
	// Lookup 返回产品年度的执行记录；不存在时返回全零记录与 false。
	Lookup(productCode string, year models.Year) (models.ExecutionEntry, bool)
}

// entryKey (产品, 年度) 组合键
type entryKey struct {
	productCode string
	year        models.Year
}

// MemorySource Source 的内存实现，由摄取文件整体装载
type MemorySource struct {
	mu      sync.RWMutex
	entries map[entryKey]models.ExecutionEntry
}

// NewMemorySource 创建空的内存台账
func NewMemorySource() *MemorySource {
	return &MemorySource{entries: make(map[entryKey]models.ExecutionEntry)}
}

func (s *MemorySource) Lookup(productCode string, year models.Year) (models.ExecutionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entryKey{productCode, year}]
	if !ok {
		return models.ExecutionEntry{}, false
	}
	return entry, true
}

// Put 写入单条执行记录（摄取管道使用）
func (s *MemorySource) Put(productCode string, year models.Year, entry models.ExecutionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey{productCode, year}] = entry
}

// executionFile 摄取文件结构
type executionFile struct {
	Entries []executionEntry `yaml:"entries"`
}

type executionEntry struct {
	ProductCode      string  `yaml:"product_code"`
	Year             int     `yaml:"year"`
	DefinitiveBudget float64 `yaml:"definitive_budget"`
	Paid             float64 `yaml:"paid"`
}

// LoadFile 读取执行台账文件并整体替换内容。
// 文件不存在不视为错误：对应的产品年度按全零查询。
func (s *MemorySource) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("load execution ledger: read %s: %w", path, err)
	}

	var file executionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("load execution ledger: unmarshal: %w", err)
	}

	next := make(map[entryKey]models.ExecutionEntry, len(file.Entries))
	for _, e := range file.Entries {
		next[entryKey{e.ProductCode, e.Year}] = models.ExecutionEntry{
			DefinitiveBudget: e.DefinitiveBudget,
			Paid:             e.Paid,
		}
	}

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()
	return len(next), nil
}
