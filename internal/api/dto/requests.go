package dto

import (
	"errors"

	"github.com/Mutombwa/bard-reco/internal/domain/recon"
)

// MappingRequest names the columns of an uploaded dataset. Either an amount
// column or a debit/credit pair must be provided.
type MappingRequest struct {
	Date      string `json:"date"`
	Reference string `json:"reference"`
	Amount    string `json:"amount,omitempty"`
	Debit     string `json:"debit,omitempty"`
	Credit    string `json:"credit,omitempty"`
}

// DatasetRequest is one uploaded dataset: raw string rows plus the column
// mapping to interpret them.
type DatasetRequest struct {
	Rows    []map[string]string `json:"rows"`
	Mapping MappingRequest      `json:"mapping"`
}

// ReconcileRequest is the body of POST /api/reconcile and POST /api/settle.
// Config is optional; omitted fields fall back to the server's configuration.
type ReconcileRequest struct {
	Ledger    DatasetRequest `json:"ledger"`
	Statement DatasetRequest `json:"statement"`
	Config    *recon.Config  `json:"config,omitempty"`
}

// Validate checks the structural requirements a request must meet before the
// engine sees it.
func (r *ReconcileRequest) Validate() error {
	if len(r.Ledger.Rows) == 0 {
		return errors.New("ledger rows are required")
	}
	if len(r.Statement.Rows) == 0 {
		return errors.New("statement rows are required")
	}
	return nil
}

// ToDataset converts a request dataset to the engine's representation.
func (d *DatasetRequest) ToDataset() recon.Dataset {
	rows := make([]recon.Row, 0, len(d.Rows))
	for _, r := range d.Rows {
		rows = append(rows, recon.Row(r))
	}
	return recon.Dataset{
		Rows: rows,
		Mapping: recon.ColumnMapping{
			Date:      d.Mapping.Date,
			Reference: d.Mapping.Reference,
			Amount:    d.Mapping.Amount,
			Debit:     d.Mapping.Debit,
			Credit:    d.Mapping.Credit,
		},
	}
}
