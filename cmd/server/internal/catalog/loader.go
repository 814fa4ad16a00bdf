package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

// catalogFile 上游解析器产出的目录文件结构。
// 数值字段由上游清洗（缺失/非数值按 0 产出），此处不再兜底。
type catalogFile struct {
	Products []productEntry `yaml:"products"`
}

type productEntry struct {
	Code                    string          `yaml:"code"`
	Name                    string          `yaml:"name"`
	Sector                  string          `yaml:"sector"`
	StrategicLine           string          `yaml:"strategic_line"`
	SustainabilityGoal      string          `yaml:"sustainability_goal"`
	AccumulationType        string          `yaml:"accumulation_type"`
	TargetByYear            map[int]float64 `yaml:"target_by_year"`
	BudgetByYear            map[int]float64 `yaml:"budget_by_year"`
	ResponsibleDepartmentID *int64          `yaml:"responsible_department_id"`
}

// LoadFile 读取目录文件并整体替换存储内容
func (s *Store) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("load catalog: read %s: %w", path, err)
	}

	products, err := ParseCatalog(data)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}

	if err := s.Replace(products); err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	return len(products), nil
}

// ParseCatalog 将目录文件内容解析为产品记录
func ParseCatalog(data []byte) ([]*models.Product, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	products := make([]*models.Product, 0, len(file.Products))
	for _, entry := range file.Products {
		p := &models.Product{
			Code:                    entry.Code,
			Name:                    entry.Name,
			Sector:                  entry.Sector,
			StrategicLine:           entry.StrategicLine,
			SustainabilityGoal:      entry.SustainabilityGoal,
			AccumulationType:        models.AccumulationType(entry.AccumulationType),
			TargetByYear:            toYearAmounts(entry.TargetByYear),
			BudgetByYear:            toYearAmounts(entry.BudgetByYear),
			ResponsibleDepartmentID: entry.ResponsibleDepartmentID,
		}
		products = append(products, p)
	}
	return products, nil
}

func toYearAmounts(in map[int]float64) models.YearAmounts {
	out := make(models.YearAmounts, len(in))
	for year, value := range in {
		out[year] = value
	}
	return out
}
