package blob

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	payload := []byte("a,b\n1,2\n")

	if err := store.Put("staging/run1-input-t.csv", bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	rc, err := store.Get("staging/run1-input-t.csv")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch: got %q", got)
	}
}

func TestStagerKeysAndRefs(t *testing.T) {
	st := &Stager{
		Store:     NewDiskStore(t.TempDir()),
		Container: "uploads",
		Prefix:    "staging/exp1",
		Account:   "acct",
		AccessKey: "secret",
	}

	if got := st.InputKey("table", "20240501-120000-abcd1234"); got != "staging/exp1/20240501-120000-abcd1234-input-table.csv" {
		t.Errorf("unexpected input key: %s", got)
	}
	if got := st.OutputKey("table", "20240501-120000-abcd1234"); got != "staging/exp1/20240501-120000-abcd1234-output-table.csv" {
		t.Errorf("unexpected output key: %s", got)
	}

	ref, err := st.StageInput("table", "stamp1", []byte("a\n1\n"))
	if err != nil {
		t.Fatalf("stage failed: %v", err)
	}
	if !strings.HasPrefix(ref.RelativeLocation, "uploads/staging/exp1/") {
		t.Errorf("relative location not container-scoped: %s", ref.RelativeLocation)
	}
	if !strings.Contains(ref.ConnectionString, "AccountName=acct") {
		t.Errorf("connection string missing account: %s", ref.ConnectionString)
	}
	if ref.Container() != "uploads" {
		t.Errorf("ref container: %s", ref.Container())
	}

	data, err := st.Download(ref)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if string(data) != "a\n1\n" {
		t.Errorf("downloaded payload mismatch: %q", data)
	}
}

func TestStagerOutputRefNotWritten(t *testing.T) {
	st := &Stager{
		Store:     NewDiskStore(t.TempDir()),
		Container: "uploads",
		Prefix:    "staging",
	}
	ref, err := st.OutputRef("result", "stamp1")
	if err != nil {
		t.Fatalf("output ref failed: %v", err)
	}
	if _, err := st.Download(ref); err == nil {
		t.Error("pre-allocated output should not exist yet")
	}
}
