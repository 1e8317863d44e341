package models

import (
	"sort"
	"time"
)

// PointTransaction is a read model: one entry of a beneficiary's
// running-balance ledger. It is never persisted.
type PointTransaction struct {
	Description     string    `json:"description,omitempty"`
	Credit          float64   `json:"credit"`
	Debit           float64   `json:"debit"`
	TransactionDate time.Time `json:"transaction_date"`
	// Total is the running balance after this entry, computed in ascending
	// timestamp order regardless of the order entries are returned in.
	Total float64 `json:"total"`
}

// PointsBalance computes the current balance: sum of purchase amounts minus
// sum of exchanged points, with the fraction discarded (points are whole
// units; truncation, not rounding). Negative inputs are summed as given so
// the result stays auditable against the source rows.
func PointsBalance(purchases []Purchase, exchanges []PointsExchange) int {
	var earned, spent float64
	for _, p := range purchases {
		earned += p.Amount
	}
	for _, e := range exchanges {
		spent += e.PointsUsed
	}
	return int(earned - spent)
}

// PointsLedger merges purchases (credits) and exchanges (debits) into one
// chronological ledger. Running totals are accumulated in ascending
// timestamp order; the returned slice is ordered descending (most recent
// first) with each entry keeping the total it had when computed.
//
// At identical timestamps purchases sort before exchanges: entries are
// appended purchases-first and the sort is stable, so ties are deterministic.
func PointsLedger(purchases []Purchase, exchanges []PointsExchange) []PointTransaction {
	ledger := make([]PointTransaction, 0, len(purchases)+len(exchanges))
	for _, p := range purchases {
		ledger = append(ledger, PointTransaction{
			Description:     "Purchase",
			Credit:          p.Amount,
			TransactionDate: p.TransactionDate,
		})
	}
	for _, e := range exchanges {
		ledger = append(ledger, PointTransaction{
			Description:     "Points exchange",
			Debit:           e.PointsUsed,
			TransactionDate: e.TransactionDate,
		})
	}

	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].TransactionDate.Before(ledger[j].TransactionDate)
	})

	var total float64
	for i := range ledger {
		total += ledger[i].Credit - ledger[i].Debit
		ledger[i].Total = total
	}

	// Reverse for presentation: most recent first, totals untouched.
	for i, j := 0, len(ledger)-1; i < j; i, j = i+1, j-1 {
		ledger[i], ledger[j] = ledger[j], ledger[i]
	}
	return ledger
}
