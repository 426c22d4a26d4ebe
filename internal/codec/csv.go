package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go-azml-client/internal/model"
	"go-azml-client/pkg/utils"
)

// TableToCSV renders a table as CSV with a header row, the format used
// for blob staging in batch mode. Missing cells are written as the
// configured sentinels.
func TableToCSV(t *model.Table, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	na := columnSentinels(t, opts)
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j, v := range row {
			record[j] = csvCell(v, na[j])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// TableFromCSV parses CSV data produced by the service or by TableToCSV.
// The header row is mandatory; sentinel cells decode back to nil.
func TableFromCSV(data []byte, opts Options) (*model.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, formatErr("", "malformed CSV", err)
	}
	if len(records) == 0 {
		return nil, formatErr("", "missing CSV header row", nil)
	}
	columns := records[0]
	rows := make([][]any, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(columns) {
			return nil, formatErr("", "CSV row width does not match header", nil)
		}
		row := make([]any, len(record))
		for j, s := range record {
			row[j] = csvValue(s, opts)
		}
		rows = append(rows, row)
	}
	widenNumericColumns(rows)
	return model.NewTable(columns, rows)
}

func csvCell(v any, na string) string {
	switch val := v.(type) {
	case nil:
		return na
	case time.Time:
		return utils.FormatTimestamp(val)
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func csvValue(s string, opts Options) any {
	if s == opts.NumericNA || s == opts.TimestampNA {
		return nil
	}
	v := utils.ParseValue(s)
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}
