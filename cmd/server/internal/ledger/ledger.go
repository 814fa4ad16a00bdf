package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
	"github.com/houzhh15/plantrack/pkg/metrics"
)

// 错误定义
var (
	// ErrActivityNotFound 表示台账中不存在该活动。
	ErrActivityNotFound = errors.New("ACTIVITY_NOT_FOUND")
	// ErrInvalidCommit 表示提交量不是正数。
	ErrInvalidCommit = errors.New("INVALID_COMMIT_AMOUNT")
	// ErrTargetExceeded 表示提交量超出该年度的可用目标。
	ErrTargetExceeded = errors.New("TARGET_EXCEEDS_AVAILABLE")
	// ErrInvalidDateRange 表示起止日期缺失或结束早于开始。
	ErrInvalidDateRange = errors.New("INVALID_DATE_RANGE")
	// ErrYearOutOfPlan 表示活动年度不在计划区间内。
	ErrYearOutOfPlan = errors.New("YEAR_OUT_OF_PLAN")
	// ErrNotPersisted 表示活动仅存在本地降级副本，不能附加证据。
	ErrNotPersisted = errors.New("ACTIVITY_NOT_PERSISTED")
	// ErrEvidenceContentRequired 表示证据缺少外部链接与图片，不构成佐证。
	ErrEvidenceContentRequired = errors.New("EVIDENCE_CONTENT_REQUIRED")
	// ErrEvidenceImageLimit 表示证据图片数量超限。
	ErrEvidenceImageLimit = errors.New("EVIDENCE_IMAGE_LIMIT_EXCEEDED")
	// ErrEvidenceImageTooLarge 表示单张图片超过大小上限。
	ErrEvidenceImageTooLarge = errors.New("EVIDENCE_IMAGE_TOO_LARGE")
	// ErrEvidenceRequired 表示无证据时不允许将状态编辑为 COMPLETED。
	ErrEvidenceRequired = errors.New("EVIDENCE_REQUIRED_FOR_COMPLETION")
	// ErrStatusTerminal 表示活动已处于终态，不再接受编辑。
	ErrStatusTerminal = errors.New("ACTIVITY_STATUS_TERMINAL")
)

// 提交校验的拒绝原因
const (
	ReasonNone             = "none"
	ReasonNonPositive      = "non_positive"
	ReasonExceedsAvailable = "exceeds_available"
)

// CommitValidation 提交校验结果
type CommitValidation struct {
	OK        bool    `json:"ok"`
	Available float64 `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

// CreateActivityInput 创建活动的输入
type CreateActivityInput struct {
	ProductCode             string
	Year                    models.Year
	TargetCommitted         float64
	ResponsibleDepartmentID *int64
	StartDate               time.Time
	EndDate                 time.Time
}

// UpdateActivityInput 编辑活动的输入，nil 字段保持不变
type UpdateActivityInput struct {
	TargetCommitted         *float64
	ResponsibleDepartmentID *int64
	Status                  *models.ActivityStatus
	StartDate               *time.Time
	EndDate                 *time.Time
}

// EvidenceInput 证据登记/重登记的输入
type EvidenceInput struct {
	Description string
	ExternalURL string
	Images      []models.EvidenceImage
}

// Ledger 活动台账。持有按 (产品, 年度) 组织的活动记录，
// 是引擎中唯一的可变共享资源；同一产品的变更经产品级互斥锁串行化，
// 避免 validate-then-create 竞态突破年度目标上限。
type Ledger struct {
	mu         sync.RWMutex
	catalog    *catalog.Store
	repo       ActivityRepository
	byProduct  map[string]map[models.Year][]*models.Activity
	byID       map[int64]*models.Activity
	locks      map[string]*sync.Mutex
	onMutate   []func(productCode string)
	onMutateMx sync.Mutex
}

// NewLedger 创建活动台账
func NewLedger(catalogStore *catalog.Store, repo ActivityRepository) *Ledger {
	return &Ledger{
		catalog:   catalogStore,
		repo:      repo,
		byProduct: make(map[string]map[models.Year][]*models.Activity),
		byID:      make(map[int64]*models.Activity),
		locks:     make(map[string]*sync.Mutex),
	}
}

// OnMutate 注册变更回调。每次 create/update/delete/attach 成功后
// 以受影响的产品编码调用，结果缓存的失效入口挂接于此。
func (l *Ledger) OnMutate(fn func(productCode string)) {
	l.onMutateMx.Lock()
	defer l.onMutateMx.Unlock()
	l.onMutate = append(l.onMutate, fn)
}

func (l *Ledger) notifyMutate(productCode string) {
	l.onMutateMx.Lock()
	hooks := make([]func(string), len(l.onMutate))
	copy(hooks, l.onMutate)
	l.onMutateMx.Unlock()

	for _, fn := range hooks {
		fn(productCode)
	}
}

// productLock 返回产品级互斥锁，不存在时创建
func (l *Ledger) productLock(productCode string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[productCode]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[productCode] = lock
	}
	return lock
}

// ActivitiesFor 返回产品指定年度的活动只读视图（按 ID 升序，
// 合成 ID 因量级靠后排列）。
func (l *Ledger) ActivitiesFor(productCode string, year models.Year) []*models.Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.byProduct[productCode][year]
	list := make([]*models.Activity, 0, len(src))
	for _, a := range src {
		list = append(list, a.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Get 按 ID 返回活动只读副本
func (l *Ledger) Get(id int64) (*models.Activity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("get activity %d: %w", id, ErrActivityNotFound)
	}
	return a.Clone(), nil
}

// AvailableTarget 返回产品年度的剩余可分配目标（floor 0）
func (l *Ledger) AvailableTarget(product *models.Product, year models.Year) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.availableLocked(product, year, 0)
}

// availableLocked 计算剩余可分配目标，excludeID 非 0 时排除该活动自身的既有提交量。
// 调用方需持有 l.mu。
func (l *Ledger) availableLocked(product *models.Product, year models.Year, excludeID int64) float64 {
	committed := 0.0
	for _, a := range l.byProduct[product.Code][year] {
		if excludeID != 0 && a.ID == excludeID {
			continue
		}
		committed += a.TargetCommitted
	}

	available := product.TargetFor(year) - committed
	if available < 0 {
		return 0
	}
	return available
}

// ValidateCommit 提交量校验：创建与编辑路径的唯一闸口。
// excludeActivityID 非 0 表示编辑场景，校验前先加回该活动自身的既有提交量。
func (l *Ledger) ValidateCommit(product *models.Product, year models.Year, amount float64, excludeActivityID int64) CommitValidation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validateCommitLocked(product, year, amount, excludeActivityID)
}

func (l *Ledger) validateCommitLocked(product *models.Product, year models.Year, amount float64, excludeActivityID int64) CommitValidation {
	available := l.availableLocked(product, year, excludeActivityID)

	if amount <= 0 {
		metrics.RecordCommitValidation("rejected", ReasonNonPositive)
		return CommitValidation{OK: false, Available: available, Reason: ReasonNonPositive}
	}
	if amount > available {
		metrics.RecordCommitValidation("rejected", ReasonExceedsAvailable)
		return CommitValidation{OK: false, Available: available, Reason: ReasonExceedsAvailable}
	}

	metrics.RecordCommitValidation("accepted", ReasonNone)
	return CommitValidation{OK: true, Available: available, Reason: ReasonNone}
}

// Create 创建活动。校验全部通过后先尝试持久化写入；
// 持久化重试一次仍失败时降级为本地记录并分配合成 ID
// （合成 ID 的活动拒绝附加证据，见 AttachEvidence）。
func (l *Ledger) Create(ctx context.Context, input CreateActivityInput) (*models.Activity, error) {
	product, err := l.catalog.Get(input.ProductCode)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	if !models.IsPlanYear(input.Year) {
		return nil, fmt.Errorf("create activity: year %d: %w", input.Year, ErrYearOutOfPlan)
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	lock := l.productLock(input.ProductCode)
	lock.Lock()
	defer lock.Unlock()

	l.mu.RLock()
	validation := l.validateCommitLocked(product, input.Year, input.TargetCommitted, 0)
	l.mu.RUnlock()
	if !validation.OK {
		return nil, commitError(validation)
	}

	now := time.Now()
	activity := &models.Activity{
		ProductCode:             input.ProductCode,
		Year:                    input.Year,
		TargetCommitted:         input.TargetCommitted,
		ResponsibleDepartmentID: input.ResponsibleDepartmentID,
		Status:                  models.StatusPending,
		StartDate:               input.StartDate,
		EndDate:                 input.EndDate,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	id, createErr := l.repo.Create(ctx, activity)
	if createErr != nil {
		// 全新记录允许重试一次后降级为本地副本
		id, createErr = l.repo.Create(ctx, activity)
	}
	if createErr != nil {
		id = time.Now().UnixNano()
	}
	activity.ID = id

	l.mu.Lock()
	l.insertLocked(activity)
	l.mu.Unlock()

	l.notifyMutate(input.ProductCode)
	return activity.Clone(), nil
}

// Update 编辑活动。提交量变更经 ValidateCommit（排除自身）校验；
// 已持久化记录的持久层写入失败直接透出，不做本地降级。
func (l *Ledger) Update(ctx context.Context, id int64, input UpdateActivityInput) (*models.Activity, error) {
	lock, current, product, err := l.lockActivity(id)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	lock.Lock()
	defer lock.Unlock()

	// 加锁后重读，避免基于过期副本编辑
	l.mu.RLock()
	current, err = l.currentLocked(id)
	l.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}

	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("update activity %d: %w", id, ErrStatusTerminal)
	}

	next := current.Clone()
	if input.TargetCommitted != nil {
		l.mu.RLock()
		validation := l.validateCommitLocked(product, current.Year, *input.TargetCommitted, id)
		l.mu.RUnlock()
		if !validation.OK {
			return nil, commitError(validation)
		}
		next.TargetCommitted = *input.TargetCommitted
	}
	if input.ResponsibleDepartmentID != nil {
		next.ResponsibleDepartmentID = input.ResponsibleDepartmentID
	}
	if input.StartDate != nil {
		next.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		next.EndDate = *input.EndDate
	}
	if err := validateDates(next.StartDate, next.EndDate); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	if input.Status != nil {
		if err := validateStatusEdit(next, *input.Status); err != nil {
			return nil, fmt.Errorf("update activity %d: %w", id, err)
		}
		next.Status = *input.Status
	}
	next.UpdatedAt = time.Now()

	if next.IsPersisted() {
		if err := l.repo.Update(ctx, next); err != nil {
			return nil, fmt.Errorf("update activity %d: %w: %v", id, ErrUpstreamUnavailable, err)
		}
	}

	l.mu.Lock()
	l.replaceLocked(next)
	l.mu.Unlock()

	l.notifyMutate(next.ProductCode)
	return next.Clone(), nil
}

// Delete 删除活动，证据级联删除。
// 已持久化记录的删除失败直接透出，不得只删本地副本。
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	lock, current, _, err := l.lockActivity(id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	lock.Lock()
	defer lock.Unlock()

	l.mu.RLock()
	current, err = l.currentLocked(id)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}

	if current.IsPersisted() {
		if err := l.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete activity %d: %w: %v", id, ErrUpstreamUnavailable, err)
		}
	}

	l.mu.Lock()
	l.removeLocked(current)
	l.mu.Unlock()

	l.notifyMutate(current.ProductCode)
	return nil
}

// AttachEvidence 登记/重登记活动证据。
// 成功即将活动置为 COMPLETED；重登记在原证据记录上就地替换。
// 仅本地降级副本（合成 ID）拒绝附证并返回 ErrNotPersisted。
func (l *Ledger) AttachEvidence(ctx context.Context, activityID int64, input EvidenceInput) (*models.Activity, error) {
	lock, current, _, err := l.lockActivity(activityID)
	if err != nil {
		metrics.RecordEvidenceAttachment("rejected")
		return nil, fmt.Errorf("attach evidence: %w", err)
	}
	lock.Lock()
	defer lock.Unlock()

	l.mu.RLock()
	current, err = l.currentLocked(activityID)
	l.mu.RUnlock()
	if err != nil {
		metrics.RecordEvidenceAttachment("rejected")
		return nil, fmt.Errorf("attach evidence: %w", err)
	}

	if !current.IsPersisted() {
		metrics.RecordEvidenceAttachment("not_persisted")
		return nil, fmt.Errorf("attach evidence to activity %d: %w", activityID, ErrNotPersisted)
	}
	if current.Status.IsTerminal() {
		metrics.RecordEvidenceAttachment("rejected")
		return nil, fmt.Errorf("attach evidence to activity %d: %w", activityID, ErrStatusTerminal)
	}
	if err := validateEvidenceInput(input); err != nil {
		metrics.RecordEvidenceAttachment("rejected")
		return nil, fmt.Errorf("attach evidence to activity %d: %w", activityID, err)
	}

	now := time.Now()
	next := current.Clone()
	if next.Evidence == nil {
		next.Evidence = &models.Evidence{
			ID:         uuid.NewString(),
			RecordedAt: now,
		}
	}
	next.Evidence.Description = input.Description
	next.Evidence.ExternalURL = input.ExternalURL
	next.Evidence.Images = normalizeImages(input.Images)
	next.Evidence.UpdatedAt = now
	next.Status = models.StatusCompleted
	next.UpdatedAt = now

	if err := l.repo.Update(ctx, next); err != nil {
		metrics.RecordEvidenceAttachment("rejected")
		return nil, fmt.Errorf("attach evidence to activity %d: %w: %v", activityID, ErrUpstreamUnavailable, err)
	}

	l.mu.Lock()
	l.replaceLocked(next)
	l.mu.Unlock()

	metrics.RecordEvidenceAttachment("success")
	l.notifyMutate(next.ProductCode)
	return next.Clone(), nil
}

// 内部辅助

// lockActivity 查找活动并返回其产品锁与所属产品
func (l *Ledger) lockActivity(id int64) (*sync.Mutex, *models.Activity, *models.Product, error) {
	l.mu.RLock()
	current, ok := l.byID[id]
	l.mu.RUnlock()
	if !ok {
		return nil, nil, nil, fmt.Errorf("activity %d: %w", id, ErrActivityNotFound)
	}

	product, err := l.catalog.Get(current.ProductCode)
	if err != nil {
		return nil, nil, nil, err
	}
	return l.productLock(current.ProductCode), current, product, nil
}

func (l *Ledger) currentLocked(id int64) (*models.Activity, error) {
	a, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("activity %d: %w", id, ErrActivityNotFound)
	}
	return a, nil
}

func (l *Ledger) insertLocked(a *models.Activity) {
	years, ok := l.byProduct[a.ProductCode]
	if !ok {
		years = make(map[models.Year][]*models.Activity)
		l.byProduct[a.ProductCode] = years
	}
	years[a.Year] = append(years[a.Year], a)
	l.byID[a.ID] = a
}

func (l *Ledger) replaceLocked(next *models.Activity) {
	list := l.byProduct[next.ProductCode][next.Year]
	for i, a := range list {
		if a.ID == next.ID {
			list[i] = next
			break
		}
	}
	l.byID[next.ID] = next
}

func (l *Ledger) removeLocked(a *models.Activity) {
	list := l.byProduct[a.ProductCode][a.Year]
	for i, item := range list {
		if item.ID == a.ID {
			l.byProduct[a.ProductCode][a.Year] = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(l.byID, a.ID)
}

func commitError(v CommitValidation) error {
	switch v.Reason {
	case ReasonNonPositive:
		return fmt.Errorf("commit validation: %w", ErrInvalidCommit)
	default:
		return fmt.Errorf("commit validation: available %.2f: %w", v.Available, ErrTargetExceeded)
	}
}

func validateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

// validateStatusEdit 状态编辑规则：COMPLETED 只能由附证触发，
// 无证据的显式 COMPLETED 编辑被拒绝；CANCELLED 为终态。
func validateStatusEdit(a *models.Activity, next models.ActivityStatus) error {
	switch next {
	case models.StatusPending, models.StatusInProgress, models.StatusCancelled:
		return nil
	case models.StatusCompleted:
		if !a.HasEvidence() {
			return ErrEvidenceRequired
		}
		return nil
	default:
		return fmt.Errorf("unknown status %q", next)
	}
}

func validateEvidenceInput(input EvidenceInput) error {
	if input.ExternalURL == "" && len(input.Images) == 0 {
		return ErrEvidenceContentRequired
	}
	if len(input.Images) > models.MaxEvidenceImages {
		return ErrEvidenceImageLimit
	}
	for _, img := range input.Images {
		if imageSize(img) > models.MaxEvidenceImageBytes {
			return ErrEvidenceImageTooLarge
		}
	}
	return nil
}

// imageSize 取声明大小与编码内容换算大小中的较大者，
// 低报的 SizeBytes 不能绕过单图上限。
func imageSize(img models.EvidenceImage) int64 {
	size := img.SizeBytes
	// base64 编码长度换算原始大小
	if decoded := int64(len(img.Data)) * 3 / 4; decoded > size {
		size = decoded
	}
	return size
}

func normalizeImages(images []models.EvidenceImage) []models.EvidenceImage {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.EvidenceImage, len(images))
	copy(out, images)
	for i := range out {
		out[i].SizeBytes = imageSize(out[i])
	}
	return out
}
