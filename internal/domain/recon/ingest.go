package recon

import (
	"github.com/shopspring/decimal"

	"github.com/Mutombwa/bard-reco/internal/domain/normalize"
)

// Row is one raw tabular row as delivered by the parsing collaborator:
// column name to raw cell value.
type Row map[string]string

// ColumnMapping names which columns carry which role. Either Amount, or
// Debit and Credit together, must be set; a ledger with separate debit and
// credit columns collapses to one signed amount (debits negative).
type ColumnMapping struct {
	Date      string `yaml:"date" json:"date"`
	Reference string `yaml:"reference" json:"reference"`
	Amount    string `yaml:"amount" json:"amount,omitempty"`
	Debit     string `yaml:"debit" json:"debit,omitempty"`
	Credit    string `yaml:"credit" json:"credit,omitempty"`
}

// Dataset is one side's raw input: ordered rows plus the role mapping.
type Dataset struct {
	Rows    []Row         `json:"rows"`
	Mapping ColumnMapping `json:"mapping"`
}

// ingest converts raw rows into normalized Records. Rows with malformed
// values are excluded and reported as diagnostics; a missing role column
// fails the whole dataset up front.
func ingest(ds Dataset, side Side, cfg *Config) ([]*Record, []Diagnostic, error) {
	if err := checkMapping(ds, side); err != nil {
		return nil, nil, err
	}

	var (
		records []*Record
		diags   []Diagnostic
	)
	for i, row := range ds.Rows {
		rec, diag := ingestRow(row, i, side, ds.Mapping, cfg)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		records = append(records, rec)
	}
	return records, diags, nil
}

// checkMapping verifies every configured role column exists in the input.
// Only the first row is inspected; the parsing collaborator guarantees
// uniform columns.
func checkMapping(ds Dataset, side Side) error {
	m := ds.Mapping
	if m.Amount == "" && m.Debit == "" && m.Credit == "" {
		return &MappingError{Side: side, Role: "amount", Column: ""}
	}
	if len(ds.Rows) == 0 {
		return nil
	}
	first := ds.Rows[0]
	roles := []struct{ role, col string }{
		{"date", m.Date},
		{"reference", m.Reference},
		{"amount", m.Amount},
		{"debit", m.Debit},
		{"credit", m.Credit},
	}
	for _, rc := range roles {
		if rc.col == "" {
			continue
		}
		if _, ok := first[rc.col]; !ok {
			return &MappingError{Side: side, Role: rc.role, Column: rc.col}
		}
	}
	if m.Date == "" {
		return &MappingError{Side: side, Role: "date", Column: ""}
	}
	return nil
}

func ingestRow(row Row, id int, side Side, m ColumnMapping, cfg *Config) (*Record, *Diagnostic) {
	date, err := normalize.ParseDate(row[m.Date])
	if err != nil {
		return nil, &Diagnostic{Side: side, RowID: id, Field: "date", Value: row[m.Date], Cause: err.Error()}
	}

	amount, diag := rowAmount(row, id, side, m)
	if diag != nil {
		return nil, diag
	}

	raw := row[m.Reference]
	return &Record{
		ID:           id,
		Side:         side,
		Date:         date,
		Reference:    normalize.Reference(raw, cfg.ReferenceStrip),
		RawReference: raw,
		Amount:       amount,
	}, nil
}

// rowAmount resolves the signed amount from either a single amount column or
// a debit/credit pair.
func rowAmount(row Row, id int, side Side, m ColumnMapping) (decimal.Decimal, *Diagnostic) {
	if m.Amount != "" {
		a, err := normalize.ParseAmount(row[m.Amount])
		if err != nil {
			return decimal.Zero, &Diagnostic{Side: side, RowID: id, Field: "amount", Value: row[m.Amount], Cause: err.Error()}
		}
		return a, nil
	}

	var amount decimal.Decimal
	if m.Debit != "" {
		if v := row[m.Debit]; v != "" {
			d, err := normalize.ParseAmount(v)
			if err != nil {
				return decimal.Zero, &Diagnostic{Side: side, RowID: id, Field: "debit", Value: v, Cause: err.Error()}
			}
			amount = amount.Sub(d)
		}
	}
	if m.Credit != "" {
		if v := row[m.Credit]; v != "" {
			c, err := normalize.ParseAmount(v)
			if err != nil {
				return decimal.Zero, &Diagnostic{Side: side, RowID: id, Field: "credit", Value: v, Cause: err.Error()}
			}
			amount = amount.Add(c)
		}
	}
	return amount, nil
}
