// Package export serializes flat transaction rows for spreadsheet use.
package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/comptoir/woocompta/internal/entity"
)

// Header is the column order of the exported table.
var Header = []string{
	"date", "reference", "nom", "prenom", "nature",
	"moyen de paiement", "montant", "devise", "statut", "ville",
}

// WriteCSV writes rows as semicolon-separated values. Amounts use a comma
// decimal separator so spreadsheet applications in comma-decimal locales
// parse them as numbers.
func WriteCSV(w io.Writer, rows []entity.FlatRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Date,
			r.Reference,
			r.LastName,
			r.FirstName,
			r.Nature,
			r.PaymentMethod,
			Amount(r.Amount.StringFixed(2)),
			r.Currency,
			r.Status,
			r.City,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Amount rewrites a fixed-point decimal string to the comma-decimal form.
func Amount(fixed string) string {
	return strings.Replace(fixed, ".", ",", 1)
}
