package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExamineCommand(t *testing.T) {
	log := `===========================================================
0-loaded/3600-3-0.5
individual candidate LOAD count
10
14
10
total ensemble START count
10
first lines
2023-07-28T10:00:00.000
last lines
2023-07-28T11:00:00.000
===========================================================
`
	path := filepath.Join(t.TempDir(), "summary.txt")
	if err := os.WriteFile(path, []byte(log), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"examine", path})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("examine failed: %v", err)
	}
	for _, want := range []string{"WARNING, examine 0-loaded/3600-3-0.5", "shortest: 0-loaded/3600-3-0.5 1h0m0s"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestLoadRunConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "experiment.yaml")
	data := "experimentDir: " + dir + "\npomDir: " + dir + "\nyamlFile: dist.yaml\nensembleSize: 5\nrandomWeights: [0.5]\nduration: 10m\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MTD_NAMESPACE", "bench")

	if err := runCmd.Flags().Parse([]string{"--config", cfgPath, "--ensemble-size", "3", "--weights", "0.0,1.0"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadRunConfig(runCmd)
	if err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}
	if cfg.EnsembleSize != 3 || len(cfg.RandomWeights) != 2 {
		t.Errorf("Expected flags to win, got size %d weights %v", cfg.EnsembleSize, cfg.RandomWeights)
	}
	if cfg.Duration.Duration != 10*time.Minute {
		t.Errorf("Expected duration from file, got %s", cfg.Duration.Duration)
	}
	if cfg.Namespace != "bench" {
		t.Errorf("Expected namespace from env, got %s", cfg.Namespace)
	}
}
