package experiment

import (
	"fmt"

	"mtdbench/pkg/capture"
	"mtdbench/pkg/dataset"
)

// Platform is the cluster flavour an experiment runs on.
type Platform struct {
	Name string
	// Kubectl is the kubectl invocation prefix.
	Kubectl []string
	// Image is the tag the maven build produces.
	Image string
	// ImageCommand makes the built image available to the cluster.
	ImageCommand []string
	// ServiceIP is the load balancer address of the ensemble service.
	ServiceIP string
}

const (
	jibPlugin    = "com.google.cloud.tools:jib-maven-plugin:3.3.1:dockerBuild"
	settingsFile = "DistMtdTestSettings.yaml"
	// LBService is the load balancer service the ensemble deploys.
	LBService = "dist-mtd-lb-service"
)

var (
	Kind = Platform{
		Name:         "kind",
		Kubectl:      capture.KubectlCommand(false),
		Image:        "docker.io/mtd-zk:kind",
		ImageCommand: []string{"kind", "load", "docker-image", "mtd-zk:kind", "-n", "mtd-3"},
		ServiceIP:    "172.18.255.200",
	}
	MicroK8s = Platform{
		Name:         "microk8s",
		Kubectl:      capture.KubectlCommand(true),
		Image:        "localhost:32000/mtd-zk:registry",
		ImageCommand: []string{"docker", "push", "localhost:32000/mtd-zk:registry"},
		ServiceIP:    "192.168.122.20",
	}
)

// PlatformFor selects microk8s or kind.
func PlatformFor(microk8s bool) Platform {
	if microk8s {
		return MicroK8s
	}
	return Kind
}

// MavenCommand builds the ensemble image with its container arguments set
// to the ensemble size and random weight.
func (p Platform) MavenCommand(size int, weight float64) []string {
	return []string{
		"mvn", "compile", jibPlugin,
		"-Djib.to.image=" + p.Image,
		fmt.Sprintf("-Djib.container.args=%s,%d,%s", settingsFile, size, dataset.FormatWeight(weight)),
	}
}

func (p Platform) kubectl(args ...string) []string {
	out := append([]string{}, p.Kubectl...)
	return append(out, args...)
}

// InitCommands builds and deploys the ensemble.
func (p Platform) InitCommands(size int, weight float64, yamlFile string) [][]string {
	return [][]string{
		p.MavenCommand(size, weight),
		p.ImageCommand,
		p.kubectl("apply", "-f", yamlFile),
	}
}

// TeardownCommands deletes the ensemble and waits for the deleted objects
// that are not pods. Pod deletion is awaited through the API.
func (p Platform) TeardownCommands(yamlFile string) [][]string {
	return [][]string{
		p.kubectl("delete", "-f", yamlFile, "--wait=true"),
		p.kubectl("delete", "deploy", "--all", "-n", "default", "--wait=true"),
		p.kubectl("delete", "svc", LBService, "-n", "default", "--wait=true"),
		p.kubectl("wait", "--for=delete", "-f", yamlFile, "--timeout=-1s"),
		p.kubectl("wait", "--for=delete", "svc/"+LBService, "-n", "default", "--timeout=-1s"),
	}
}
