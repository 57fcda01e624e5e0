package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/vexplain/internal/domain"
	domexp "github.com/kailas-cloud/vexplain/internal/domain/explanation"
	"github.com/kailas-cloud/vexplain/internal/index"
	"github.com/kailas-cloud/vexplain/internal/repository/explanation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "local")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeConfig writes an offline config: hashing embedder, no generator,
// synthetic knowledge base.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	data := "embedding:\n  provider: hashing\n  dimensions: 128\n" +
		"index:\n  dir: " + filepath.Join(dir, "index") + "\n  min_similarity: 0\n" +
		"knowledge:\n  source: \"\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	want := []string{"build-index", "explain", "serve", "validate-index", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "vexplain dev") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestExplain_RequiresVariants(t *testing.T) {
	_, err := execute(t, "explain")
	var ue *usageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if code := report(err); code != 2 {
		t.Errorf("expected exit code 2, got %d", code)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	_, err := execute(t, "build-index", "--no-such-flag")
	var ue *usageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "build-index", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing --config file")
	}
	if code := report(err); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestInvalidConfigIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  provider: word2vec\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "build-index", "--config", path)
	if got := domain.ErrorClass(err); got != "ConfigurationError" {
		t.Fatalf("expected ConfigurationError, got %q (%v)", got, err)
	}
}

func TestValidateIndex_Missing(t *testing.T) {
	_, err := execute(t, "validate-index", "--index-dir", t.TempDir())
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildValidateExplain(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	indexDir := filepath.Join(dir, "index")

	out, err := execute(t, "build-index", "--config", cfgPath)
	if err != nil {
		t.Fatalf("build-index: %v", err)
	}
	if !strings.Contains(out, indexDir) {
		t.Errorf("expected index dir in output, got %q", out)
	}

	out, err = execute(t, "validate-index", "--index-dir", indexDir)
	if err != nil {
		t.Fatalf("validate-index: %v", err)
	}
	var desc index.Descriptor
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		t.Fatalf("decode descriptor: %v", err)
	}
	if desc.VectorCount != 100 {
		t.Errorf("expected 100 synthetic records, got %d", desc.VectorCount)
	}
	if desc.EmbeddingModelID != "hashing:v1@128" {
		t.Errorf("unexpected model id %q", desc.EmbeddingModelID)
	}

	variantsPath := filepath.Join(dir, "variants.tsv")
	tsv := "Variant_ID\tGene\tConsequence\tClinical_Significance\tPriority_Rank\n" +
		"v1\tBRCA1\tstop_gained\tPathogenic\t2\n" +
		"v2\tTP53\tmissense_variant\tPathogenic\t1\n" +
		"v3\tHBB\tsynonymous_variant\tBenign\t3\n"
	if err := os.WriteFile(variantsPath, []byte(tsv), 0o600); err != nil {
		t.Fatal(err)
	}

	resultsDir := filepath.Join(dir, "results")
	out, err = execute(t, "explain", "--config", cfgPath,
		"--variants", variantsPath, "--out", resultsDir, "--max-variants", "2", "--top-k", "3")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(out, "Explained 2 variants") {
		t.Errorf("unexpected output %q", out)
	}

	data, err := os.ReadFile(filepath.Join(resultsDir, explanation.JSONFile))
	if err != nil {
		t.Fatalf("read explanations: %v", err)
	}
	var exps []domexp.Explanation
	if err := json.Unmarshal(data, &exps); err != nil {
		t.Fatalf("decode explanations: %v", err)
	}
	if len(exps) != 2 {
		t.Fatalf("expected 2 explanations, got %d", len(exps))
	}
	// Priority_Rank ascending.
	if exps[0].VariantID != "v2" || exps[1].VariantID != "v1" {
		t.Errorf("unexpected order %q, %q", exps[0].VariantID, exps[1].VariantID)
	}
	for _, e := range exps {
		if e.Text == "" {
			t.Errorf("%s: empty explanation", e.VariantID)
		}
		if e.GeneratorUsed != domexp.GeneratorFallback {
			t.Errorf("%s: expected fallback generator, got %q", e.VariantID, e.GeneratorUsed)
		}
		if e.EvidenceCount > 3 {
			t.Errorf("%s: evidence %d exceeds top-k", e.VariantID, e.EvidenceCount)
		}
	}

	for _, name := range []string{explanation.TSVFile, explanation.SummaryFile} {
		if _, err := os.Stat(filepath.Join(resultsDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestExplain_InvalidTopK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	variantsPath := filepath.Join(dir, "variants.tsv")
	if err := os.WriteFile(variantsPath, []byte("Gene\nBRCA1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "explain", "--config", cfgPath, "--variants", variantsPath, "--top-k", "0")
	if !errors.Is(err, domain.ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
}
