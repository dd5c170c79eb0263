package experiment

// Package experiment drives experiment runs against the MTD ensemble: build
// and deploy the ensemble for one random weight, poll it while its logs are
// captured, tear it down and check what the pods reported.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"

	"mtdbench/pkg/capture"
	"mtdbench/pkg/cluster"
	"mtdbench/pkg/workload"
)

// Capture modes.
const (
	CaptureKubectl = "kubectl"
	CaptureAPI     = "api"
)

// DefaultServicePort is the port the ensemble's load balancer listens on.
const DefaultServicePort = 5678

// Config holds the parameters of an experiment series.
type Config struct {
	// ExperimentDir must exist; one run directory is created per weight.
	ExperimentDir string `json:"experimentDir"`
	// PomDir is where the ensemble's maven build runs.
	PomDir string `json:"pomDir"`
	// YAMLFile is applied with kubectl to deploy the ensemble.
	YAMLFile      string    `json:"yamlFile"`
	EnsembleSize  int       `json:"ensembleSize"`
	RandomWeights []float64 `json:"randomWeights"`
	MicroK8s      bool      `json:"microk8s"`
	// Duration of the measured client phase of each run.
	Duration metav1.Duration `json:"duration"`

	Namespace string `json:"namespace,omitempty"`
	// ServiceIP overrides the platform's load balancer address.
	ServiceIP   string `json:"serviceIP,omitempty"`
	ServicePort int    `json:"servicePort,omitempty"`

	CaptureMode  string          `json:"captureMode,omitempty"`
	PollInterval metav1.Duration `json:"pollInterval,omitempty"`
	// ReadyTimeout bounds the wait for the first running pod; zero waits
	// indefinitely.
	ReadyTimeout metav1.Duration `json:"readyTimeout,omitempty"`
	// DrainTimeout bounds each namespace drain wait during teardown; zero
	// waits indefinitely.
	DrainTimeout metav1.Duration `json:"drainTimeout,omitempty"`

	ClientInterval metav1.Duration `json:"clientInterval,omitempty"`
	ClientTimeout  metav1.Duration `json:"clientTimeout,omitempty"`
	// TimeZone of client.csv timestamps.
	TimeZone string `json:"timeZone,omitempty"`

	SkipImageCheck bool `json:"skipImageCheck,omitempty"`
}

// DefaultConfig returns a Config with every optional field set.
func DefaultConfig() Config {
	return Config{
		Namespace:      cluster.DefaultNamespace,
		ServicePort:    DefaultServicePort,
		CaptureMode:    CaptureKubectl,
		PollInterval:   metav1.Duration{Duration: capture.DefaultPollInterval},
		ClientInterval: metav1.Duration{Duration: workload.DefaultInterval},
		ClientTimeout:  metav1.Duration{Duration: workload.DefaultTimeout},
		TimeZone:       workload.DefaultLocation,
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from MTD_NAMESPACE and MTD_SERVICE_IP.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MTD_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("MTD_SERVICE_IP"); v != "" {
		c.ServiceIP = v
	}
}

// Validate checks the config and makes its paths absolute, since commands
// run from the pom directory.
func (c *Config) Validate() error {
	var errs []error

	if c.ExperimentDir == "" {
		errs = append(errs, errors.New("experiment directory is required"))
	} else if fi, err := os.Stat(c.ExperimentDir); err != nil || !fi.IsDir() {
		errs = append(errs, fmt.Errorf("experiment directory %s needs to exist", c.ExperimentDir))
	}
	if c.PomDir == "" {
		errs = append(errs, errors.New("pom directory is required"))
	}
	if c.YAMLFile == "" {
		errs = append(errs, errors.New("ensemble YAML file is required"))
	}
	if c.EnsembleSize <= 0 {
		errs = append(errs, fmt.Errorf("ensemble size must be positive, got %d", c.EnsembleSize))
	}
	if len(c.RandomWeights) == 0 {
		errs = append(errs, errors.New("at least one random weight is required"))
	}
	for _, w := range c.RandomWeights {
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Errorf("random weight %v is outside [0, 1]", w))
		}
	}
	if c.Duration.Duration < time.Second {
		errs = append(errs, fmt.Errorf("duration must be at least 1s, got %s", c.Duration.Duration))
	}
	if c.CaptureMode != CaptureKubectl && c.CaptureMode != CaptureAPI {
		errs = append(errs, fmt.Errorf("unknown capture mode %q", c.CaptureMode))
	}
	if c.ServicePort <= 0 || c.ServicePort > 65535 {
		errs = append(errs, fmt.Errorf("invalid service port %d", c.ServicePort))
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("time zone %q: %w", c.TimeZone, err))
	}
	if len(errs) > 0 {
		return utilerrors.NewAggregate(errs)
	}

	for _, p := range []*string{&c.ExperimentDir, &c.PomDir, &c.YAMLFile} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// DurationSeconds is the run duration as used in run directory names.
func (c *Config) DurationSeconds() int {
	return int(c.Duration.Duration / time.Second)
}
