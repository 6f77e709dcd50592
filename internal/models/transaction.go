// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags a transaction as income or expense. It always follows the sign
// of the amount.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// ZeroTolerance is the magnitude below which an amount counts as zero.
var ZeroTolerance = decimal.RequireFromString("0.001")

// Transaction is one statement line item.
type Transaction struct {
	Date        time.Time           `json:"date" yaml:"date"`
	DateText    string              `json:"date_text" yaml:"date_text"` // dd/mm/yyyy
	ValueDate   string              `json:"value_date,omitempty" yaml:"value_date,omitempty"`
	Concept     string              `json:"concept" yaml:"concept"`
	Description string              `json:"description" yaml:"description"`
	Amount      decimal.Decimal     `json:"amount" yaml:"amount"`
	Kind        Kind                `json:"kind" yaml:"kind"`
	Balance     decimal.NullDecimal `json:"balance" yaml:"balance"`
	Category    string              `json:"category,omitempty" yaml:"category,omitempty"`
}

// NewTransaction builds a Transaction with Kind derived from amount.
func NewTransaction(date time.Time, dateText, concept, description string, amount decimal.Decimal) Transaction {
	tx := Transaction{
		Date:        date,
		DateText:    dateText,
		Concept:     concept,
		Description: description,
	}
	tx.SetAmount(amount)
	return tx
}

// SetAmount sets the amount and re-derives Kind.
func (t *Transaction) SetAmount(amount decimal.Decimal) {
	t.Amount = amount
	t.Kind = KindOf(amount)
}

// SetBalance records the running balance stated by the bank.
func (t *Transaction) SetBalance(balance decimal.Decimal) {
	t.Balance = decimal.NullDecimal{Decimal: balance, Valid: true}
}

// KindOf returns KindIncome for amounts >= 0 and KindExpense otherwise.
func KindOf(amount decimal.Decimal) Kind {
	if amount.IsNegative() {
		return KindExpense
	}
	return KindIncome
}

// IsIncome reports whether the transaction is a credit.
func (t Transaction) IsIncome() bool {
	return t.Kind == KindIncome
}

// IsExpense reports whether the transaction is a debit.
func (t Transaction) IsExpense() bool {
	return t.Kind == KindExpense
}

// IsZero reports whether |amount| <= ZeroTolerance.
func (t Transaction) IsZero() bool {
	return t.Amount.Abs().LessThanOrEqual(ZeroTolerance)
}

// HasBalance reports whether the source stated a running balance.
func (t Transaction) HasBalance() bool {
	return t.Balance.Valid
}

// CategoryOrDefault returns the category, or CategoryOther when unset.
func (t Transaction) CategoryOrDefault() string {
	if t.Category == "" {
		return CategoryOther
	}
	return t.Category
}
