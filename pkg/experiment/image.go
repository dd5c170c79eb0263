package experiment

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"k8s.io/klog/v2"
)

// ImageVerifier checks that a built image is present locally.
type ImageVerifier interface {
	VerifyImage(ctx context.Context, ref string) error
}

// DockerVerifier inspects images through the local docker daemon.
type DockerVerifier struct {
	cli *client.Client
}

// NewDockerVerifier connects using the DOCKER_* environment.
func NewDockerVerifier() (*DockerVerifier, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerVerifier{cli: cli}, nil
}

func (d *DockerVerifier) VerifyImage(ctx context.Context, ref string) error {
	inspect, _, err := d.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("image %s was not built: %w", ref, err)
		}
		return fmt.Errorf("inspect image %s: %w", ref, err)
	}
	klog.InfoS("Verified image", "image", ref, "id", inspect.ID, "created", inspect.Created)
	return nil
}

// Close releases the docker client.
func (d *DockerVerifier) Close() error {
	return d.cli.Close()
}
