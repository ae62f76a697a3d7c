package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// Export writes trades and check-ins in the given format. Output can be read back
// with Parse; CSV carries trades only.
func Export(w io.Writer, format Format, trades []models.TradeRecord, checkIns []models.CheckInRecord) error {
	doc := Document{Trades: trades, CheckIns: checkIns}
	switch format {
	case FormatCSV:
		return writeCSV(w, trades)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFmt, format)
}
