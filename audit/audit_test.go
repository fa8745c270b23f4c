package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/askdba/langsec/diagnostic"
)

func TestEntryFromResultAllowed(t *testing.T) {
	e := EntryFromResult("SELECT 1", nil)
	if !e.Allowed {
		t.Errorf("Allowed = false, want true")
	}
	if e.Kind != "" {
		t.Errorf("Kind = %q, want empty", e.Kind)
	}
}

func TestEntryFromResultDiagnostic(t *testing.T) {
	d := diagnostic.New(diagnostic.KindTableAccess, "table denied").WithTable("secrets")
	e := EntryFromResult("SELECT * FROM secrets", d)
	if e.Allowed {
		t.Errorf("Allowed = true, want false")
	}
	if e.Kind != string(diagnostic.KindTableAccess) || e.Table != "secrets" {
		t.Errorf("Entry = %+v, unexpected", e)
	}
}

func TestEntryFromResultComposite(t *testing.T) {
	first := diagnostic.New(diagnostic.KindTableAccess, "table denied").WithTable("secrets")
	second := diagnostic.New(diagnostic.KindColumnAccess, "column denied").WithColumn("ssn")
	c := &diagnostic.Composite{Findings: []*diagnostic.Diagnostic{first, second}}
	e := EntryFromResult("SELECT ssn FROM secrets", c)
	if e.Kind != string(diagnostic.KindTableAccess) {
		t.Errorf("Kind = %q, want the first finding's kind", e.Kind)
	}
}

func TestJSONFileLoggerWritesOneLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewJSONFileLogger(path)
	if err != nil {
		t.Fatalf("NewJSONFileLogger() error = %v", err)
	}
	defer logger.Close()

	logger.Log(EntryFromResult("SELECT 1", nil))
	logger.Log(EntryFromResult("SELECT * FROM secrets", diagnostic.New(diagnostic.KindTableAccess, "denied")))

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var first Entry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !first.Allowed {
		t.Errorf("first entry Allowed = false, want true")
	}
}

func TestNewJSONFileLoggerRejectsEmptyPath(t *testing.T) {
	if _, err := NewJSONFileLogger(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
