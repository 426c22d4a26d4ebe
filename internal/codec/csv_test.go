package codec

import (
	"strings"
	"testing"
	"time"
)

func TestCSVRoundTrip(t *testing.T) {
	in := sampleTable(t)
	data, err := TableToCSV(in, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := TableFromCSV(data, DefaultOptions())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !in.Equal(out) {
		t.Errorf("CSV round trip mismatch:\n in=%v\nout=%v", in.Rows, out.Rows)
	}
}

func TestCSVMixedNumericColumn(t *testing.T) {
	in := mustTable(t, []string{"v"}, [][]any{{2.0}, {1.5}})
	data, err := TableToCSV(in, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := TableFromCSV(data, DefaultOptions())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got, ok := out.Cell(0, 0).(float64); !ok || got != 2.0 {
		t.Errorf("whole-valued float not widened: %T %v", out.Cell(0, 0), out.Cell(0, 0))
	}
	if !in.Equal(out) {
		t.Errorf("mixed numeric CSV round trip mismatch:\n in=%v\nout=%v", in.Rows, out.Rows)
	}
}

func TestCSVHeaderRow(t *testing.T) {
	in := sampleTable(t)
	data, err := TableToCSV(in, DefaultOptions())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	first := strings.SplitN(string(data), "\n", 2)[0]
	if strings.TrimSpace(first) != "name,count,score,when" {
		t.Errorf("unexpected header: %q", first)
	}
}

func TestCSVSentinel(t *testing.T) {
	opts := Options{NumericNA: "NA", TimestampNA: "NaT"}
	in := mustTable(t, []string{"v", "ts"},
		[][]any{{nil, nil}, {int64(7), time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)}})
	data, err := TableToCSV(in, opts)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(string(data), "NA,NaT") {
		t.Fatalf("sentinels not written: %s", data)
	}
	out, err := TableFromCSV(data, opts)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !in.Equal(out) {
		t.Errorf("sentinel CSV round trip mismatch:\n in=%v\nout=%v", in.Rows, out.Rows)
	}
}

func TestCSVMissingHeader(t *testing.T) {
	_, err := TableFromCSV([]byte(""), DefaultOptions())
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("want *FormatError, got %T: %v", err, err)
	}
}

func TestCSVRaggedRow(t *testing.T) {
	_, err := TableFromCSV([]byte("a,b\n1\n"), DefaultOptions())
	if err == nil {
		t.Fatal("want error on ragged row")
	}
}
