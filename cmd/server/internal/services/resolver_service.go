package services

import (
	"time"

	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

// ResolverService 完成度解析服务接口。
// 全部为无副作用的派生计算：同一台账状态下重复调用结果恒等。
type ResolverService interface {
	// YearProgress 计算产品单年度的派生进度与四态分类。
	YearProgress(product *models.Product, year models.Year) *models.YearProgress

	// ProductProgress 计算产品跨年度综合进度。
	// 仅对规划目标大于 0 的年度取均值，不适用年度不进分母。
	ProductProgress(product *models.Product) *models.ProductProgress
}

// resolverService 完成度解析服务实现
type resolverService struct {
	ledger *ledger.Ledger
	nowFn  func() time.Time
}

// NewResolverService 创建完成度解析服务实例
func NewResolverService(l *ledger.Ledger) ResolverService {
	return &resolverService{ledger: l, nowFn: time.Now}
}

// NewResolverServiceAt 创建使用指定时钟的解析服务（测试用）
func NewResolverServiceAt(l *ledger.Ledger, nowFn func() time.Time) ResolverService {
	return &resolverService{ledger: l, nowFn: nowFn}
}

// YearProgress 计算产品单年度进度
func (s *resolverService) YearProgress(product *models.Product, year models.Year) *models.YearProgress {
	activities := s.ledger.ActivitiesFor(product.Code, year)

	progress := &models.YearProgress{
		ProductCode:      product.Code,
		Year:             year,
		TargetProgrammed: product.TargetFor(year),
		ActivityCount:    len(activities),
	}

	for _, a := range activities {
		progress.TargetCommitted += a.TargetCommitted
		// 证据存在与否是"已执行"的唯一判据：
		// 有活动无证据不产生任何进度，不给部分学分
		if a.HasEvidence() {
			progress.TargetExecuted += a.TargetCommitted
			progress.CompletedActivityCount++
		}
	}

	progress.TargetAvailable = progress.TargetProgrammed - progress.TargetCommitted
	if progress.TargetAvailable < 0 {
		progress.TargetAvailable = 0
	}

	progress.ProgressPercent = progressPercent(progress.TargetExecuted, progress.TargetProgrammed)
	progress.Status = s.yearStatus(progress)
	return progress
}

// ProductProgress 计算产品跨年度综合进度
func (s *resolverService) ProductProgress(product *models.Product) *models.ProductProgress {
	result := &models.ProductProgress{ProductCode: product.Code}

	sum := 0.0
	for _, year := range models.PlanYears() {
		if !product.AppliesTo(year) {
			continue
		}
		yp := s.YearProgress(product, year)
		result.Years = append(result.Years, yp)
		result.ApplicableYears++
		sum += yp.ProgressPercent
	}

	if result.ApplicableYears > 0 {
		result.AveragePercent = sum / float64(result.ApplicableYears)
	}
	result.Status = blendedStatus(result.AveragePercent, result.ApplicableYears)
	return result
}

// progressPercent 进度百分比：已执行为 0 时恒为 0；
// 执行量覆盖全部规划目标时精确返回 100，避免浮点舍入把
// 99.96% 读成完成或把完成读成 99.999%。
func progressPercent(executed, programmed float64) float64 {
	if executed == 0 || programmed <= 0 {
		return 0
	}
	if executed == programmed {
		return 100
	}
	percent := 100 * executed / programmed
	if percent > 100 {
		return 100
	}
	return percent
}

// yearStatus 年度四态分类。过去/当前/未来年度适用不同规则：
//   - 未来年度恒为 UPCOMING；
//   - 过去年度仅在执行量精确覆盖规划目标时为 COMPLETED，否则 PENDING；
//   - 当前年度存在活动但执行量为 0 时视为 IN_PROGRESS（已指派未举证
//     仍算推进中，而非未开始）。
func (s *resolverService) yearStatus(p *models.YearProgress) models.YearStatus {
	currentYear := s.nowFn().Year()
	complete := p.TargetProgrammed > 0 && p.TargetExecuted == p.TargetProgrammed

	switch {
	case p.Year > currentYear:
		return models.YearStatusUpcoming
	case p.Year < currentYear:
		if complete {
			return models.YearStatusCompleted
		}
		return models.YearStatusPending
	default:
		if p.ActivityCount > 0 && p.TargetExecuted == 0 {
			return models.YearStatusInProgress
		}
		if p.ProgressPercent == 0 {
			return models.YearStatusPending
		}
		if complete {
			return models.YearStatusCompleted
		}
		return models.YearStatusInProgress
	}
}

// blendedStatus 跨年度综合分类。多年度混合后不再区分过去/未来，
// 按 0/100/中间 三段划分。
func blendedStatus(averagePercent float64, applicableYears int) models.YearStatus {
	if applicableYears == 0 || averagePercent == 0 {
		return models.YearStatusPending
	}
	if averagePercent == 100 {
		return models.YearStatusCompleted
	}
	return models.YearStatusInProgress
}
