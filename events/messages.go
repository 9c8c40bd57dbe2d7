package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertLevel 预算提醒级别
type AlertLevel string

const (
	AlertNone AlertLevel = ""
	AlertNear AlertLevel = "near"
	AlertOver AlertLevel = "over"
)

// BudgetAlert 某月消费越过预算提醒线
type BudgetAlert struct {
	UserID    uint       `json:"userId"`
	Month     int        `json:"month"`
	Year      int        `json:"year"`
	Level     AlertLevel `json:"level"`
	Limit     float64    `json:"limit"`
	Spent     float64    `json:"spent"`
	Timestamp time.Time  `json:"timestamp"`
}

// ToJSON 序列化
func (a *BudgetAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// BudgetAlertFromJSON 反序列化并校验
func BudgetAlertFromJSON(data []byte) (*BudgetAlert, error) {
	var a BudgetAlert
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.UserID == 0 || (a.Level != AlertNear && a.Level != AlertOver) {
		return nil, fmt.Errorf("invalid budget alert: user=%d level=%q", a.UserID, a.Level)
	}
	return &a, nil
}
