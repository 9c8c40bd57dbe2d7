package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"fintrack/models"

	"gorm.io/gorm"
)

// NearBudgetThreshold 接近预算的比例
const NearBudgetThreshold = 0.8

// DefaultTrendMonths 趋势默认月数
const DefaultTrendMonths = 6

// MaxTrendMonths 趋势最大月数
const MaxTrendMonths = 24

// CategorySpending 类别消费汇总
type CategorySpending struct {
	CategoryID    uint    `json:"categoryId"`
	CategoryName  string  `json:"categoryName"`
	CategoryColor string  `json:"categoryColor"`
	Total         float64 `json:"total"`
	Count         int64   `json:"count"`
	Percentage    float64 `json:"percentage"`
}

// MonthlySummary 月度汇总
type MonthlySummary struct {
	Month             int                `json:"month"`
	Year              int                `json:"year"`
	TotalExpenses     float64            `json:"totalExpenses"`
	TotalIncome       float64            `json:"totalIncome"`
	Savings           float64            `json:"savings"`
	SavingsPercentage float64            `json:"savingsPercentage"`
	BudgetLimit       float64            `json:"budgetLimit"`
	BudgetUsed        float64            `json:"budgetUsed"`
	BudgetRemaining   float64            `json:"budgetRemaining"`
	IsOverBudget      bool               `json:"isOverBudget"`
	CategoryBreakdown []CategorySpending `json:"categoryBreakdown"`
}

// SummaryReport 仪表盘汇总
type SummaryReport struct {
	Summary           MonthlySummary    `json:"summary"`
	ExpenseCount      int64             `json:"expenseCount"`
	HighestCategory   *CategorySpending `json:"highestCategory"`
	IsNearBudget      bool              `json:"isNearBudget"`
	BudgetPercentUsed int               `json:"budgetPercentUsed"`
}

// TrendPoint 趋势数据点
type TrendPoint struct {
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// TrendSeries 收支趋势
type TrendSeries struct {
	Expenses []TrendPoint `json:"expenses"`
	Income   []TrendPoint `json:"income"`
}

// MonthTotal 月度合计
type MonthTotal struct {
	Month int     `json:"month"`
	Total float64 `json:"total"`
}

// YearlySummary 年度汇总
type YearlySummary struct {
	Year                  int          `json:"year"`
	TotalExpenses         float64      `json:"totalExpenses"`
	TotalIncome           float64      `json:"totalIncome"`
	Savings               float64      `json:"savings"`
	ExpenseCount          int64        `json:"expenseCount"`
	AverageMonthlyExpense float64      `json:"averageMonthlyExpense"`
	MonthlyBreakdown      []MonthTotal `json:"monthlyBreakdown"`
}

// DayTotal 单日合计
type DayTotal struct {
	Day   int     `json:"day"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// DailySpending 当月每日消费
type DailySpending struct {
	Year          int        `json:"year"`
	Month         int        `json:"month"`
	DailySpending []DayTotal `json:"dailySpending"`
}

type periodTotal struct {
	Total float64
	Count int64
}

type monthBucket struct {
	Year  int
	Month int
	Total float64
}

// AnalyticsService 统计聚合
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService 创建统计服务
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// MonthWindow 返回某月的 [第一刻, 最后一刻]
func MonthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// YearWindow 返回某年的 [第一刻, 最后一刻]
func YearWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// TrendWindow 以 now 所在月为最后一个月、宽度为 months 的连续窗口
func TrendWindow(now time.Time, months int) (time.Time, time.Time) {
	_, end := MonthWindow(now.Year(), int(now.Month()))
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -(months - 1), 0)
	return first, end
}

// ClampTrendMonths 规范趋势月数
func ClampTrendMonths(months int) int {
	if months <= 0 {
		return DefaultTrendMonths
	}
	if months > MaxTrendMonths {
		return MaxTrendMonths
	}
	return months
}

// MonthlySummary 计算某月汇总
func (s *AnalyticsService) MonthlySummary(ctx context.Context, userID uint, year, month int) (*SummaryReport, error) {
	start, end := MonthWindow(year, month)

	expenses, err := s.sumPeriod(ctx, &models.Expense{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}
	income, err := s.sumPeriod(ctx, &models.Income{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("sum income: %w", err)
	}
	limit, err := s.budgetLimit(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	groups, err := s.CategoryBreakdown(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}

	report := BuildSummaryReport(year, month, expenses.Total, expenses.Count, income.Total, limit, groups)
	return &report, nil
}

// BuildSummaryReport 由原始合计推导预算标记、结余与类别占比
func BuildSummaryReport(year, month int, totalExpenses float64, expenseCount int64, totalIncome, budgetLimit float64, groups []CategorySpending) SummaryReport {
	isOver := budgetLimit > 0 && toCents(totalExpenses) > toCents(budgetLimit)
	isNear := budgetLimit > 0 && totalExpenses >= budgetLimit*NearBudgetThreshold && !isOver

	savings := subtractMoney(totalIncome, totalExpenses)
	savingsPct := 0.0
	if totalIncome > 0 {
		savingsPct = round2(savings / totalIncome * 100)
	}

	breakdown := ApplyPercentages(groups, totalExpenses)

	var highest *CategorySpending
	if len(breakdown) > 0 {
		top := breakdown[0]
		highest = &top
	}

	percentUsed := 0
	if budgetLimit > 0 {
		percentUsed = int(math.Round(totalExpenses / budgetLimit * 100))
	}

	return SummaryReport{
		Summary: MonthlySummary{
			Month:             month,
			Year:              year,
			TotalExpenses:     totalExpenses,
			TotalIncome:       totalIncome,
			Savings:           savings,
			SavingsPercentage: savingsPct,
			BudgetLimit:       budgetLimit,
			BudgetUsed:        totalExpenses,
			BudgetRemaining:   subtractMoney(budgetLimit, totalExpenses),
			IsOverBudget:      isOver,
			CategoryBreakdown: breakdown,
		},
		ExpenseCount:      expenseCount,
		HighestCategory:   highest,
		IsNearBudget:      isNear,
		BudgetPercentUsed: percentUsed,
	}
}

// ApplyPercentages 计算各类别占比并按金额降序
func ApplyPercentages(groups []CategorySpending, totalExpenses float64) []CategorySpending {
	out := make([]CategorySpending, len(groups))
	copy(out, groups)
	for i := range out {
		out[i].Percentage = round2(percentOf(out[i].Total, totalExpenses))
	}
	sortByTotalDesc(out)
	return out
}

func sortByTotalDesc(groups []CategorySpending) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total > groups[j].Total
	})
}

// CategoryBreakdown 区间内按类别分组的消费
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID uint, start, end time.Time) ([]CategorySpending, error) {
	var groups []CategorySpending
	err := s.db.WithContext(ctx).
		Table("expenses").
		Select("expenses.category_id AS category_id, categories.name AS category_name, categories.color AS category_color, SUM(expenses.amount) AS total, COUNT(*) AS count").
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Where("expenses.user_id = ? AND expenses.date BETWEEN ? AND ?", userID, start, end).
		Group("expenses.category_id, categories.name, categories.color").
		Order("total DESC").
		Scan(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// MonthSpending 某月消费合计与预算额度，预算不存在时额度为 0
func (s *AnalyticsService) MonthSpending(ctx context.Context, userID uint, year, month int) (spent, limit float64, err error) {
	start, end := MonthWindow(year, month)
	total, err := s.sumPeriod(ctx, &models.Expense{}, userID, start, end)
	if err != nil {
		return 0, 0, err
	}
	limit, err = s.budgetLimit(ctx, userID, year, month)
	if err != nil {
		return 0, 0, err
	}
	return total.Total, limit, nil
}

// Trends 最近 months 个月的收支趋势，无数据的月份补 0
func (s *AnalyticsService) Trends(ctx context.Context, userID uint, months int, now time.Time) (*TrendSeries, error) {
	months = ClampTrendMonths(months)
	start, end := TrendWindow(now, months)

	expenseBuckets, err := s.monthlyTotals(ctx, &models.Expense{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("expense trend: %w", err)
	}
	incomeBuckets, err := s.monthlyTotals(ctx, &models.Income{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("income trend: %w", err)
	}

	return &TrendSeries{
		Expenses: BuildTrend(start, months, expenseBuckets),
		Income:   BuildTrend(start, months, incomeBuckets),
	}, nil
}

// BuildTrend 生成从 start 开始连续 months 个月的数据点
func BuildTrend(start time.Time, months int, buckets []monthBucket) []TrendPoint {
	totals := make(map[string]float64, len(buckets))
	for _, b := range buckets {
		totals[fmt.Sprintf("%04d-%02d", b.Year, b.Month)] += b.Total
	}

	points := make([]TrendPoint, 0, months)
	for i := 0; i < months; i++ {
		m := start.AddDate(0, i, 0)
		key := m.Format("2006-01")
		points = append(points, TrendPoint{
			Date:   key,
			Label:  m.Format("Jan 2006"),
			Amount: totals[key],
		})
	}
	return points
}

// Yearly 年度汇总
func (s *AnalyticsService) Yearly(ctx context.Context, userID uint, year int) (*YearlySummary, error) {
	start, end := YearWindow(year)

	expenses, err := s.sumPeriod(ctx, &models.Expense{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}
	income, err := s.sumPeriod(ctx, &models.Income{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("sum income: %w", err)
	}
	buckets, err := s.monthlyTotals(ctx, &models.Expense{}, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("monthly breakdown: %w", err)
	}

	breakdown := make([]MonthTotal, 0, len(buckets))
	for _, b := range buckets {
		breakdown = append(breakdown, MonthTotal{Month: b.Month, Total: b.Total})
	}

	return &YearlySummary{
		Year:                  year,
		TotalExpenses:         expenses.Total,
		TotalIncome:           income.Total,
		Savings:               subtractMoney(income.Total, expenses.Total),
		ExpenseCount:          expenses.Count,
		AverageMonthlyExpense: round2(expenses.Total / 12),
		MonthlyBreakdown:      breakdown,
	}, nil
}

// Daily 某月每日消费
func (s *AnalyticsService) Daily(ctx context.Context, userID uint, year, month int) (*DailySpending, error) {
	start, end := MonthWindow(year, month)

	days := make([]DayTotal, 0)
	err := s.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("DAY(date) AS day, SUM(amount) AS total, COUNT(*) AS count").
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Group("DAY(date)").
		Order("day").
		Scan(&days).Error
	if err != nil {
		return nil, fmt.Errorf("daily spending: %w", err)
	}

	return &DailySpending{Year: year, Month: month, DailySpending: days}, nil
}

func (s *AnalyticsService) sumPeriod(ctx context.Context, model interface{}, userID uint, start, end time.Time) (periodTotal, error) {
	var agg periodTotal
	err := s.db.WithContext(ctx).
		Model(model).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Scan(&agg).Error
	return agg, err
}

func (s *AnalyticsService) monthlyTotals(ctx context.Context, model interface{}, userID uint, start, end time.Time) ([]monthBucket, error) {
	var buckets []monthBucket
	err := s.db.WithContext(ctx).
		Model(model).
		Select("YEAR(date) AS year, MONTH(date) AS month, SUM(amount) AS total").
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Group("YEAR(date), MONTH(date)").
		Order("year, month").
		Scan(&buckets).Error
	return buckets, err
}

func (s *AnalyticsService) budgetLimit(ctx context.Context, userID uint, year, month int) (float64, error) {
	var budget models.Budget
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return budget.Limit, nil
}
