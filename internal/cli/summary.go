package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/Mutombwa/bard-reco/internal/domain/recon"
)

// formatMoney renders a decimal amount in the given currency, respecting the
// currency's minor-unit fraction.
func formatMoney(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// printSummary writes the human-readable run summary.
func printSummary(w io.Writer, res *recon.Result, currency string) {
	s := res.Summary
	fmt.Fprintf(w, "run %s (%s)\n", res.RunID, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  ledger rows:     %d\n", s.TotalLedger)
	fmt.Fprintf(w, "  statement rows:  %d\n", s.TotalStatement)
	fmt.Fprintf(w, "  perfect:         %d\n", s.PerfectMatches)
	fmt.Fprintf(w, "  fuzzy:           %d\n", s.FuzzyMatches)
	fmt.Fprintf(w, "  split:           %d\n", s.SplitMatches)
	if s.ForeignCredits > 0 {
		fmt.Fprintf(w, "  foreign credits: %d\n", s.ForeignCredits)
	}
	if s.SettlementMatches > 0 {
		fmt.Fprintf(w, "  settlement:      %d\n", s.SettlementMatches)
	}
	fmt.Fprintf(w, "  unmatched:       %d ledger / %d statement\n", s.UnmatchedLedger, s.UnmatchedStatement)
	if s.Excluded > 0 {
		fmt.Fprintf(w, "  excluded rows:   %d\n", s.Excluded)
	}
	fmt.Fprintf(w, "  matched amount:   %s\n", formatMoney(s.MatchedAmount, currency))
	fmt.Fprintf(w, "  unmatched amount: %s\n", formatMoney(s.UnmatchedAmount, currency))
	if res.Incomplete {
		fmt.Fprintln(w, "  NOTE: run was cancelled before all tiers completed")
	}
}
