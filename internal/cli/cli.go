// Package cli implements the bardreco command verbs.
package cli

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/Mutombwa/bard-reco/internal/domain/recon"
)

// Commands lists every verb the binary registers.
var Commands = []subcommands.Command{
	&runCmd{},
	&settleCmd{},
	&serveCmd{},
}

// mappingFlags binds the column-mapping flags for one input file.
type mappingFlags struct {
	date   string
	ref    string
	amount string
	debit  string
	credit string
}

func (m *mappingFlags) register(f *flag.FlagSet, prefix string) {
	f.StringVar(&m.date, prefix+"-date", "Date", "name of the date column in the "+prefix+" file")
	f.StringVar(&m.ref, prefix+"-ref", "Reference", "name of the reference column in the "+prefix+" file")
	f.StringVar(&m.amount, prefix+"-amount", "Amount", "name of the amount column in the "+prefix+" file")
	f.StringVar(&m.debit, prefix+"-debit", "", "name of the debit column (overrides -"+prefix+"-amount)")
	f.StringVar(&m.credit, prefix+"-credit", "", "name of the credit column (overrides -"+prefix+"-amount)")
}

func (m *mappingFlags) mapping() recon.ColumnMapping {
	cm := recon.ColumnMapping{
		Date:      m.date,
		Reference: m.ref,
		Debit:     m.debit,
		Credit:    m.credit,
	}
	if m.debit == "" && m.credit == "" {
		cm.Amount = m.amount
	}
	return cm
}

// loadDataset reads a CSV file with a header row into an engine dataset.
func loadDataset(path string, mapping recon.ColumnMapping) (recon.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return recon.Dataset{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return recon.Dataset{}, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows []recon.Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return recon.Dataset{}, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(recon.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return recon.Dataset{Rows: rows, Mapping: mapping}, nil
}

// writeResult writes the full result as JSON, to a file when path is set and
// stdout otherwise.
func writeResult(res *recon.Result, path string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}
