package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// departmentsFile 部门目录文件结构
type departmentsFile struct {
	Departments []departmentEntry `yaml:"departments"`
}

type departmentEntry struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// LoadFile 从 YAML 文件装载部门目录。
// 文件不存在不视为错误：所有部门解析为"未指派"分桶。
func LoadFile(path string) (Directory, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMemoryDirectory(nil), 0, nil
		}
		return nil, 0, fmt.Errorf("load departments: read %s: %w", path, err)
	}

	var file departmentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("load departments: unmarshal: %w", err)
	}

	names := make(map[int64]string, len(file.Departments))
	for _, d := range file.Departments {
		names[d.ID] = d.Name
	}
	return NewMemoryDirectory(names), len(names), nil
}
