package format

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rbramwell/halin/internal/model"
)

// CSVHeader is the column layout written by WriteCSV.
var CSVHeader = []string{"node", "domain", "key", "value"}

// CSVize quotes a field for CSV output, doubling embedded double quotes.
func CSVize(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Stringify renders a record value as a single field. Strings and probe
// errors are written as-is; everything else is JSON encoded.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case model.ProbeError:
		return string(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// WriteCSV writes records as node,domain,key,value rows under a header line.
// Every field is quoted.
func WriteCSV(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := writeRow(bw, []string{r.Node, r.Domain, r.Key, Stringify(r.Value)}); err != nil {
			return fmt.Errorf("WriteCSV %s/%s: %w", r.Domain, r.Key, err)
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(CSVize(f)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

// WriteJSON writes the whole package as indented JSON.
func WriteJSON(w io.Writer, pkg *model.Package) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}
	return nil
}
