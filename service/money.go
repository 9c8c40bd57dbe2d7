package service

import "math"

// 金额在数据库中为 decimal(12,2)，SUM 在库内精确完成；Go 侧的差值统一按分计算
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

func subtractMoney(a, b float64) float64 {
	return fromCents(toCents(a) - toCents(b))
}

func addMoney(a, b float64) float64 {
	return fromCents(toCents(a) + toCents(b))
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentOf 分母为 0 时返回 0
func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
