// Package report writes analysis results to disk as JSON and CSV. Each
// write is stamped with a fresh run ID so repeated runs against the same
// snapshot never clobber each other.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/quantlabs-in/bhavcopy-analytics/internal/analyze"
)

// Envelope wraps a result with its run identity for the JSON output.
type Envelope struct {
	RunID  string          `json:"run_id"`
	Result *analyze.Result `json:"result"`
}

// WriteJSON writes the full result under a run-scoped filename and returns
// the run ID.
func WriteJSON(res *analyze.Result, outdir string) (string, error) {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return "", err
	}
	runID := uuid.NewString()
	b, err := json.MarshalIndent(Envelope{RunID: runID, Result: res}, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("analysis_%s_%s.json", res.ValuationDate.Format("20060102"), runID[:8])
	return runID, os.WriteFile(filepath.Join(outdir, name), b, 0o644)
}

// WriteLegsCSV writes the priced legs as a flat CSV for spreadsheet use.
func WriteLegsCSV(res *analyze.Result, outdir string) error {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outdir, fmt.Sprintf("legs_%s.csv", res.ValuationDate.Format("20060102"))))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"side", "option_type", "strike", "qty", "premium"}); err != nil {
		return err
	}
	for _, leg := range res.Legs {
		row := []string{
			leg.Spec.Side,
			string(leg.Spec.OptionType),
			fmt.Sprintf("%.2f", leg.Strike),
			fmt.Sprintf("%d", leg.Spec.Qty),
			fmt.Sprintf("%.2f", leg.Premium),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
