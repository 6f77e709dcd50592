package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregates are derived from a batch when it is saved.
type Aggregates struct {
	TransactionCount int                 `json:"transaction_count" yaml:"transaction_count"`
	TotalIncome      decimal.Decimal     `json:"total_income" yaml:"total_income"`
	TotalExpenses    decimal.Decimal     `json:"total_expenses" yaml:"total_expenses"`
	FinalBalance     decimal.NullDecimal `json:"final_balance" yaml:"final_balance"`
}

// BatchSummary describes one saved statement without its transactions.
type BatchSummary struct {
	ID         string     `json:"id" yaml:"id"`
	UserID     string     `json:"user_id" yaml:"user_id"`
	FileName   string     `json:"file_name" yaml:"file_name"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	Aggregates Aggregates `json:"aggregates" yaml:"aggregates"`
}

// Batch is the ordered transaction list parsed from one statement.
type Batch struct {
	BatchSummary `yaml:",inline"`
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
}
