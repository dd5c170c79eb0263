package experiment

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Namespace != "mtd" {
		t.Errorf("Expected namespace mtd, got %s", cfg.Namespace)
	}
	if cfg.PollInterval.Duration != 3*time.Second {
		t.Errorf("Expected 3s poll interval, got %s", cfg.PollInterval.Duration)
	}
	if cfg.ClientInterval.Duration != 200*time.Millisecond || cfg.ClientTimeout.Duration != 5*time.Second {
		t.Errorf("Unexpected client timings %s / %s", cfg.ClientInterval.Duration, cfg.ClientTimeout.Duration)
	}
	if cfg.ReadyTimeout.Duration != 0 {
		t.Errorf("Expected unbounded ready wait, got %s", cfg.ReadyTimeout.Duration)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.yaml")
	data := `experimentDir: /data/exp
pomDir: /src/mtd
yamlFile: /src/mtd/dist.yaml
ensembleSize: 3
randomWeights: [0.0, 0.5, 1.0]
microk8s: true
duration: 5m
readyTimeout: 10m
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadConfigFile(path, &cfg); err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0.5, 1}, cfg.RandomWeights); diff != "" {
		t.Errorf("weights mismatch (-want +got):\n%s", diff)
	}
	if !cfg.MicroK8s || cfg.EnsembleSize != 3 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Duration.Duration != 5*time.Minute || cfg.ReadyTimeout.Duration != 10*time.Minute {
		t.Errorf("Unexpected durations %s / %s", cfg.Duration.Duration, cfg.ReadyTimeout.Duration)
	}
	// Defaults survive fields the file does not set.
	if cfg.Namespace != "mtd" || cfg.ServicePort != 5678 {
		t.Errorf("Expected defaults to be kept, got %s:%d", cfg.Namespace, cfg.ServicePort)
	}
}

func TestLoadConfigFile_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ensembleSise: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	if err := LoadConfigFile(path, &cfg); err == nil {
		t.Error("Expected error for unknown field")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MTD_NAMESPACE", "bench")
	t.Setenv("MTD_SERVICE_IP", "10.0.0.7")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Namespace != "bench" || cfg.ServiceIP != "10.0.0.7" {
		t.Errorf("Expected env overrides, got %s / %s", cfg.Namespace, cfg.ServiceIP)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExperimentDir = filepath.Join(t.TempDir(), "missing")
	cfg.RandomWeights = []float64{1.5}
	cfg.CaptureMode = "ssh"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"needs to exist", "pom directory", "YAML file", "ensemble size", "outside [0, 1]", "duration", "capture mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestValidate_MakesPathsAbsolute(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Mkdir("exp", 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := testConfigFields()
	cfg.ExperimentDir = "exp"
	cfg.PomDir = "."
	cfg.YAMLFile = "dist.yaml"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for _, p := range []string{cfg.ExperimentDir, cfg.PomDir, cfg.YAMLFile} {
		if !filepath.IsAbs(p) {
			t.Errorf("Expected absolute path, got %s", p)
		}
	}
}

func testConfigFields() Config {
	cfg := DefaultConfig()
	cfg.EnsembleSize = 3
	cfg.RandomWeights = []float64{0.5}
	cfg.Duration.Duration = time.Minute
	return cfg
}

func TestValidate_AggregateUnwraps(t *testing.T) {
	cfg := testConfigFields()
	cfg.ExperimentDir = t.TempDir()
	cfg.PomDir = "."
	cfg.YAMLFile = "dist.yaml"
	cfg.TimeZone = "Mars/Olympus_Mons"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected unknown time zone to fail")
	}
	var agg interface{ Errors() []error }
	if !errors.As(err, &agg) || len(agg.Errors()) != 1 {
		t.Errorf("Expected a single aggregated error, got %v", err)
	}
}
