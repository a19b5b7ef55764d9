package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
common:
  is_sender: true
  psi_scheme: kkrt
kkrt_psi_params:
  epsilon: 0.27
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !doc.Common.IsSender {
		t.Fatalf("expected is_sender=true")
	}
	if doc.Common.PSIScheme != "kkrt" {
		t.Fatalf("got psi_scheme=%q", doc.Common.PSIScheme)
	}
	if doc.KKRTPSIParams.Epsilon != 0.27 {
		t.Fatalf("got epsilon=%v, want 0.27", doc.KKRTPSIParams.Epsilon)
	}
	// fun_num was not present in the YAML, so the built-in default
	// must survive the merge.
	if doc.KKRTPSIParams.FunNum != 3 {
		t.Fatalf("got fun_num=%v, want default 3", doc.KKRTPSIParams.FunNum)
	}
	if doc.ECDHParams.CurveID != 415 {
		t.Fatalf("got curve_id=%v, want default 415", doc.ECDHParams.CurveID)
	}
}
