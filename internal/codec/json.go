package codec

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"go-azml-client/internal/model"
	"go-azml-client/pkg/utils"
)

// wireTable is the non-swagger table shape.
type wireTable struct {
	ColumnNames []string            `json:"ColumnNames"`
	Values      [][]json.RawMessage `json:"Values"`
}

type requestEnvelope struct {
	Inputs           map[string]json.RawMessage `json:"Inputs"`
	GlobalParameters map[string]string          `json:"GlobalParameters"`
}

type responseEnvelope struct {
	Results map[string]json.RawMessage `json:"Results"`
	Error   *model.ErrorBody           `json:"error"`
}

// EncodeRequest builds the execution request body from named input tables
// and scalar parameters. With swagger set, tables serialize as arrays of
// row objects instead of the ColumnNames/Values shape.
func EncodeRequest(inputs map[string]*model.Table, params map[string]string, swagger bool, opts Options) ([]byte, error) {
	env := requestEnvelope{
		Inputs:           make(map[string]json.RawMessage, len(inputs)),
		GlobalParameters: params,
	}
	if env.GlobalParameters == nil {
		env.GlobalParameters = map[string]string{}
	}
	for name, t := range inputs {
		raw, err := EncodeTable(t, swagger, opts)
		if err != nil {
			return nil, formatErr("Inputs."+name, "cannot encode table", err)
		}
		env.Inputs[name] = raw
	}
	return json.Marshal(env)
}

// EncodeTable serializes one table in the requested wire format.
func EncodeTable(t *model.Table, swagger bool, opts Options) ([]byte, error) {
	na := columnSentinels(t, opts)
	if swagger {
		return encodeSwaggerTable(t, na)
	}
	wt := wireTable{ColumnNames: t.Columns, Values: make([][]json.RawMessage, len(t.Rows))}
	for i, row := range t.Rows {
		cells := make([]json.RawMessage, len(row))
		for j, v := range row {
			raw, err := json.Marshal(encodeCell(v, na[j]))
			if err != nil {
				return nil, err
			}
			cells[j] = raw
		}
		wt.Values[i] = cells
	}
	return json.Marshal(wt)
}

// encodeSwaggerTable writes rows as objects by hand so column order is
// preserved on the wire.
func encodeSwaggerTable(t *model.Table, na []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(encodeCell(row[j], na[j]))
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// columnSentinels picks the missing-value replacement per column: the
// timestamp sentinel for columns holding time values, the numeric one
// otherwise.
func columnSentinels(t *model.Table, opts Options) []string {
	na := make([]string, len(t.Columns))
	for j := range t.Columns {
		na[j] = opts.NumericNA
		for _, row := range t.Rows {
			if _, ok := row[j].(time.Time); ok {
				na[j] = opts.TimestampNA
				break
			}
		}
	}
	return na
}

func encodeCell(v any, na string) any {
	switch val := v.(type) {
	case nil:
		return na
	case time.Time:
		return utils.FormatTimestamp(val)
	default:
		return val
	}
}

// DecodeResponse parses an execution response body into named output
// tables plus any service-reported diagnostics. Every reported output is
// returned unless opts.KeepOnlyNamed filters to opts.OutputNames.
func DecodeResponse(body []byte, opts DecodeOptions) (map[string]*model.Table, []model.Diagnostic, error) {
	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, formatErr("", "response body is not valid JSON", err)
	}
	if env.Results == nil {
		return nil, nil, formatErr("Results", "missing field", nil)
	}
	keep := map[string]bool{}
	for _, n := range opts.OutputNames {
		keep[n] = true
	}
	outputs := make(map[string]*model.Table, len(env.Results))
	for name, raw := range env.Results {
		if opts.KeepOnlyNamed && len(opts.OutputNames) > 0 && !keep[name] {
			continue
		}
		t, err := DecodeTable(raw, opts.Options)
		if err != nil {
			return nil, nil, formatErr("Results."+name, "cannot decode table", err)
		}
		outputs[name] = t
	}
	var diags []model.Diagnostic
	if env.Error != nil {
		diags = append(diags, model.Diagnostic{Code: env.Error.Code, Message: env.Error.Message})
		diags = append(diags, env.Error.Details...)
	}
	return outputs, diags, nil
}

// DecodeRequest parses an execution request body back into input tables
// and parameters. Useful on the service side and for debugging payloads.
func DecodeRequest(body []byte, opts Options) (map[string]*model.Table, map[string]string, error) {
	var env requestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, formatErr("", "request body is not valid JSON", err)
	}
	if env.Inputs == nil {
		return nil, nil, formatErr("Inputs", "missing field", nil)
	}
	inputs := make(map[string]*model.Table, len(env.Inputs))
	for name, raw := range env.Inputs {
		t, err := DecodeTable(raw, opts)
		if err != nil {
			return nil, nil, formatErr("Inputs."+name, "cannot decode table", err)
		}
		inputs[name] = t
	}
	params := env.GlobalParameters
	if params == nil {
		params = map[string]string{}
	}
	return inputs, params, nil
}

// DecodeTable parses a single table in any of the wire shapes: swagger
// array, ColumnNames/Values object, or the {type:"table",value:...}
// output wrapper.
func DecodeTable(raw json.RawMessage, opts Options) (*model.Table, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, formatErr("", "empty table value", nil)
	}
	if trimmed[0] == '[' {
		return decodeSwaggerTable(trimmed, opts)
	}
	var probe struct {
		Type        string          `json:"type"`
		Value       json.RawMessage `json:"value"`
		ColumnNames []string        `json:"ColumnNames"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, formatErr("", "table value is not valid JSON", err)
	}
	if probe.Type != "" {
		if probe.Type != "table" {
			return nil, formatErr("type", "unsupported value type: "+probe.Type, nil)
		}
		if probe.Value == nil {
			return nil, formatErr("value", "missing field", nil)
		}
		return DecodeTable(probe.Value, opts)
	}
	if probe.ColumnNames == nil {
		return nil, formatErr("ColumnNames", "missing field", nil)
	}
	var wt wireTable
	if err := json.Unmarshal(trimmed, &wt); err != nil {
		return nil, formatErr("Values", "malformed table", err)
	}
	rows := make([][]any, len(wt.Values))
	for i, cells := range wt.Values {
		if len(cells) != len(wt.ColumnNames) {
			return nil, formatErr("Values", "row width does not match ColumnNames", nil)
		}
		row := make([]any, len(cells))
		for j, raw := range cells {
			v, err := decodeCell(raw, opts)
			if err != nil {
				return nil, formatErr("Values", "bad cell", err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	widenNumericColumns(rows)
	return model.NewTable(wt.ColumnNames, rows)
}

// widenNumericColumns converts int cells to float64 in any column that
// also holds a fractional value. JSON and CSV cannot tell a whole-valued
// float from an int, so column-level inference restores a uniform
// numeric type the way the original column dtypes did.
func widenNumericColumns(rows [][]any) {
	if len(rows) == 0 {
		return
	}
	for j := range rows[0] {
		hasFloat := false
		for _, row := range rows {
			if _, ok := row[j].(float64); ok {
				hasFloat = true
				break
			}
		}
		if !hasFloat {
			continue
		}
		for _, row := range rows {
			if i, ok := row[j].(int64); ok {
				row[j] = float64(i)
			}
		}
	}
}

func decodeSwaggerTable(raw []byte, opts Options) (*model.Table, error) {
	columns, err := swaggerColumns(raw)
	if err != nil {
		return nil, err
	}
	var objs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, formatErr("", "malformed swagger table", err)
	}
	rows := make([][]any, len(objs))
	for i, obj := range objs {
		row := make([]any, len(columns))
		for j, col := range columns {
			cell, ok := obj[col]
			if !ok {
				row[j] = nil
				continue
			}
			v, err := decodeCell(cell, opts)
			if err != nil {
				return nil, formatErr(col, "bad cell", err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	widenNumericColumns(rows)
	return model.NewTable(columns, rows)
}

// swaggerColumns reads the row objects token by token so the wire's key
// order survives Go's unordered maps. Keys are unioned across rows in
// first-appearance order; a key absent from a row decodes as nil.
func swaggerColumns(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // [
		return nil, formatErr("", "malformed swagger table", err)
	}
	columns := []string{}
	seen := make(map[string]bool)
	for dec.More() {
		if _, err := dec.Token(); err != nil { // {
			return nil, formatErr("", "malformed swagger table", err)
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, formatErr("", "malformed swagger table", err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, formatErr("", "malformed swagger table", nil)
			}
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, formatErr(key, "malformed swagger table", err)
			}
		}
		if _, err := dec.Token(); err != nil { // }
			return nil, formatErr("", "malformed swagger table", err)
		}
	}
	return columns, nil
}

// decodeCell converts one JSON value into a typed cell. Sentinel strings
// map back to nil, timestamp-shaped strings become time.Time, integral
// numbers become int64, other numbers float64.
func decodeCell(raw json.RawMessage, opts Options) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return val, nil
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return i, nil
		}
		return val.Float64()
	case string:
		if val == opts.NumericNA || val == opts.TimestampNA {
			return nil, nil
		}
		if t, err := utils.ParseTimestamp(val); err == nil {
			return t, nil
		}
		return val, nil
	default:
		return nil, formatErr("", "nested value is not a valid cell", nil)
	}
}
