package gennatives

import (
	"strings"
	"testing"
)

func TestGenerateTableRendersRegistrations(t *testing.T) {
	fns := []NativeFunc{{Name: "Len"}, {Name: "Print"}}
	code, err := GenerateTable("example.com/natives/builtin", "genbuiltin", fns)
	if err != nil {
		t.Fatalf("GenerateTable: %v", err)
	}

	if !strings.Contains(code, "package genbuiltin") {
		t.Errorf("expected package declaration, got:\n%s", code)
	}
	if !strings.Contains(code, `pkg "example.com/natives/builtin"`) {
		t.Errorf("expected import of source package, got:\n%s", code)
	}
	if !strings.Contains(code, `t.Register("Len", pkg.Len)`) {
		t.Errorf("expected Len registration, got:\n%s", code)
	}
	if !strings.Contains(code, `t.Register("Print", pkg.Print)`) {
		t.Errorf("expected Print registration, got:\n%s", code)
	}
}

func TestGenerateTableEmptyFuncsStillFormats(t *testing.T) {
	code, err := GenerateTable("example.com/natives/empty", "genempty", nil)
	if err != nil {
		t.Fatalf("GenerateTable: %v", err)
	}
	if !strings.Contains(code, "func Register(t *engine.NativeTable) {") {
		t.Errorf("expected Register function, got:\n%s", code)
	}
}
