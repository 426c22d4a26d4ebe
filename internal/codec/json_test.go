package codec

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go-azml-client/internal/model"
)

func mustTable(t *testing.T, columns []string, rows [][]any) *model.Table {
	t.Helper()
	tab, err := model.NewTable(columns, rows)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return tab
}

func sampleTable(t *testing.T) *model.Table {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return mustTable(t,
		[]string{"name", "count", "score", "when"},
		[][]any{
			{"alpha", int64(3), 1.5, ts},
			{"beta", nil, 2.25, nil},
		})
}

func TestEncodeDecodeTableRoundTrip(t *testing.T) {
	for _, swagger := range []bool{false, true} {
		in := sampleTable(t)
		raw, err := EncodeTable(in, swagger, DefaultOptions())
		if err != nil {
			t.Fatalf("swagger=%v: encode failed: %v", swagger, err)
		}
		out, err := DecodeTable(raw, DefaultOptions())
		if err != nil {
			t.Fatalf("swagger=%v: decode failed: %v", swagger, err)
		}
		if !in.Equal(out) {
			t.Errorf("swagger=%v: round trip mismatch:\n in=%v\nout=%v", swagger, in.Rows, out.Rows)
		}
	}
}

func TestMixedNumericColumnRoundTrip(t *testing.T) {
	// 2.0 encodes as JSON 2; column inference must widen it back to
	// float64 because the column also holds a fractional value.
	for _, swagger := range []bool{false, true} {
		in := mustTable(t, []string{"v", "n"}, [][]any{
			{2.0, int64(1)},
			{1.5, int64(2)},
		})
		raw, err := EncodeTable(in, swagger, DefaultOptions())
		if err != nil {
			t.Fatalf("swagger=%v: encode failed: %v", swagger, err)
		}
		out, err := DecodeTable(raw, DefaultOptions())
		if err != nil {
			t.Fatalf("swagger=%v: decode failed: %v", swagger, err)
		}
		if got, ok := out.Cell(0, 0).(float64); !ok || got != 2.0 {
			t.Errorf("swagger=%v: whole-valued float not widened: %T %v", swagger, out.Cell(0, 0), out.Cell(0, 0))
		}
		if _, ok := out.Cell(0, 1).(int64); !ok {
			t.Errorf("swagger=%v: pure int column must stay int64, got %T", swagger, out.Cell(0, 1))
		}
		if !in.Equal(out) {
			t.Errorf("swagger=%v: mixed numeric round trip mismatch:\n in=%v\nout=%v", swagger, in.Rows, out.Rows)
		}
	}
}

func TestSwaggerColumnOrderPreserved(t *testing.T) {
	in := mustTable(t, []string{"zulu", "alpha", "mike"}, [][]any{{int64(1), int64(2), int64(3)}})
	raw, err := EncodeTable(in, true, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := DecodeTable(raw, DefaultOptions())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i, want := range in.Columns {
		if out.Columns[i] != want {
			t.Fatalf("column %d: got %q, want %q", i, out.Columns[i], want)
		}
	}
}

func TestSwaggerColumnsUnionAcrossRows(t *testing.T) {
	raw := []byte(`[{"a":1},{"a":2,"b":"x"}]`)
	out, err := DecodeTable(raw, DefaultOptions())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Columns) != 2 || out.Columns[0] != "a" || out.Columns[1] != "b" {
		t.Fatalf("columns not unioned in appearance order: %v", out.Columns)
	}
	if out.Cell(0, 1) != nil {
		t.Errorf("missing key must decode as nil, got %v", out.Cell(0, 1))
	}
	if out.Cell(1, 1) != "x" {
		t.Errorf("late column value lost: %v", out.Cell(1, 1))
	}
}

func TestCustomSentinelRoundTrip(t *testing.T) {
	opts := Options{NumericNA: "NA", TimestampNA: "NaT"}
	in := mustTable(t,
		[]string{"v", "ts"},
		[][]any{{nil, nil}, {2.5, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)}})
	raw, err := EncodeTable(in, false, opts)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(string(raw), `"NA"`) || !strings.Contains(string(raw), `"NaT"`) {
		t.Fatalf("sentinels not written: %s", raw)
	}
	out, err := DecodeTable(raw, opts)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !in.Equal(out) {
		t.Errorf("sentinel round trip mismatch:\n in=%v\nout=%v", in.Rows, out.Rows)
	}
}

func TestEncodeRequestShape(t *testing.T) {
	in := sampleTable(t)
	body, err := EncodeRequest(map[string]*model.Table{"input1": in}, map[string]string{"p": "1"}, false, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var env struct {
		Inputs map[string]struct {
			ColumnNames []string `json:"ColumnNames"`
			Values      [][]any  `json:"Values"`
		} `json:"Inputs"`
		GlobalParameters map[string]string `json:"GlobalParameters"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	got, ok := env.Inputs["input1"]
	if !ok {
		t.Fatal("Inputs.input1 missing")
	}
	if len(got.ColumnNames) != 4 || len(got.Values) != 2 {
		t.Errorf("unexpected table shape: %d columns, %d rows", len(got.ColumnNames), len(got.Values))
	}
	if env.GlobalParameters["p"] != "1" {
		t.Errorf("GlobalParameters not carried: %v", env.GlobalParameters)
	}
}

func TestEncodeRequestEmptyParams(t *testing.T) {
	body, err := EncodeRequest(map[string]*model.Table{}, nil, false, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(string(body), `"GlobalParameters":{}`) {
		t.Errorf("nil params should encode as empty object: %s", body)
	}
}

func TestDecodeResponseWrappedTable(t *testing.T) {
	body := []byte(`{"Results":{"out":{"type":"table","value":{"ColumnNames":["a"],"Values":[[1],[2]]}}}}`)
	outputs, diags, err := DecodeResponse(body, DecodeOptions{Options: DefaultOptions()})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	out, ok := outputs["out"]
	if !ok {
		t.Fatal("output missing")
	}
	if out.NumRows() != 2 || out.Cell(0, 0) != int64(1) {
		t.Errorf("unexpected table: %v", out.Rows)
	}
}

func TestDecodeResponseFiltering(t *testing.T) {
	body := []byte(`{"Results":{
		"a":{"ColumnNames":["x"],"Values":[[1]]},
		"b":{"ColumnNames":["x"],"Values":[[2]]},
		"c":{"ColumnNames":["x"],"Values":[[3]]}}}`)

	outputs, _, err := DecodeResponse(body, DecodeOptions{Options: DefaultOptions(), OutputNames: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(outputs) != 3 {
		t.Errorf("default decode must keep all outputs, got %d", len(outputs))
	}

	outputs, _, err = DecodeResponse(body, DecodeOptions{Options: DefaultOptions(), OutputNames: []string{"a", "b"}, KeepOnlyNamed: true})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(outputs) != 2 {
		t.Errorf("KeepOnlyNamed must filter to the named set, got %d", len(outputs))
	}
	if _, ok := outputs["c"]; ok {
		t.Error("output c should have been dropped")
	}
}

func TestDecodeResponseMissingResults(t *testing.T) {
	_, _, err := DecodeResponse([]byte(`{"foo":1}`), DecodeOptions{Options: DefaultOptions()})
	fe, ok := err.(*FormatError)
	if !ok {
		t.Fatalf("want *FormatError, got %T: %v", err, err)
	}
	if fe.Path != "Results" {
		t.Errorf("want path Results, got %q", fe.Path)
	}
}

func TestDecodeResponseDiagnostics(t *testing.T) {
	body := []byte(`{"Results":{},"error":{"code":"ModuleExecutionError","message":"boom",
		"details":[{"code":"85","message":"column missing"}]}}`)
	_, diags, err := DecodeResponse(body, DecodeOptions{Options: DefaultOptions()})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("want 2 diagnostics, got %d", len(diags))
	}
	if diags[0].Code != "ModuleExecutionError" || diags[1].Message != "column missing" {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestDecodeRequestRoundTrip(t *testing.T) {
	in := sampleTable(t)
	body, err := EncodeRequest(map[string]*model.Table{"input1": in}, map[string]string{"p": "x"}, true, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	inputs, params, err := DecodeRequest(body, DefaultOptions())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !in.Equal(inputs["input1"]) {
		t.Errorf("request round trip mismatch")
	}
	if params["p"] != "x" {
		t.Errorf("params not carried: %v", params)
	}
}
