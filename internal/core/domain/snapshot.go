package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawAmount is a monetary value as reported by the ads platform. The
// platform encodes amounts inconsistently: sometimes a JSON number,
// sometimes a quoted string, sometimes with a comma as the decimal
// separator, and often the field is simply absent. Decoding never fails;
// anything that cannot be read as a number leaves Valid false.
type RawAmount struct {
	Value decimal.Decimal
	Valid bool
}

// UnmarshalJSON accepts numbers, quoted numbers and null. A comma is
// treated as the decimal separator when the value contains no dot.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	a.Value = decimal.Zero
	a.Valid = false

	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	a.Value = d
	a.Valid = true
	return nil
}

// MarshalJSON writes the amount as a quoted decimal string, or null when
// the value was never set.
func (a RawAmount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(`"` + a.Value.String() + `"`), nil
}

// NewRawAmount builds a valid RawAmount, mainly for tests and seeding.
func NewRawAmount(d decimal.Decimal) RawAmount {
	return RawAmount{Value: d, Valid: true}
}

// CampaignSnapshot is the raw campaign tree delivered by the ads platform
// client once per ingestion cycle. Every budget and timestamp field is
// optional; absence is legal and must not abort processing.
type CampaignSnapshot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Status          string          `json:"status"`
	DailyBudget     RawAmount       `json:"daily_budget"`
	LifetimeBudget  RawAmount       `json:"lifetime_budget"`
	RemainingBudget RawAmount       `json:"budget_remaining"`
	Spend           RawAmount       `json:"spend"`
	StartTime       *time.Time      `json:"start_time"`
	StopTime        *time.Time      `json:"stop_time"`
	CreatedTime     *time.Time      `json:"created_time"`
	AdSets          []AdSetSnapshot `json:"adsets"`
}

// AdSetSnapshot mirrors the campaign shape one level down the hierarchy.
// Campaign-level budgets are sometimes configured only here.
type AdSetSnapshot struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	DailyBudget    RawAmount    `json:"daily_budget"`
	LifetimeBudget RawAmount    `json:"lifetime_budget"`
	Spend          RawAmount    `json:"spend"`
	Ads            []AdSnapshot `json:"ads"`
}

// AdSnapshot is an individual ad inside an adset. Ads carry no budget
// fields of their own; they are kept for completeness of the tree.
type AdSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
