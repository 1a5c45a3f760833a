package agent

import (
	"context"
	"strings"

	dockertypes "github.com/docker/docker/api/types"
	docker "github.com/docker/docker/client"

	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// ContainerReporter enumerates the local container runtime for heartbeat
// reports.
type ContainerReporter interface {
	List(ctx context.Context) ([]*types.ContainerInfo, error)
	Close() error
}

// DockerReporter reads container state from the local Docker Engine API.
// It is read-only: workload execution belongs to the action controller's
// executor, not to the agent.
type DockerReporter struct {
	cli      *docker.Client
	nodeName string
}

// NewDockerReporter connects to the local container runtime using the
// standard environment (DOCKER_HOST etc.).
func NewDockerReporter(nodeName string) (*DockerReporter, error) {
	cli, err := docker.NewClientWithOpts(docker.FromEnv, docker.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errdefs.Unavailable(err, "failed to connect to container runtime")
	}
	return &DockerReporter{cli: cli, nodeName: nodeName}, nil
}

// List returns every local container with its raw lifecycle flags and
// annotations. Containers are included regardless of state so the master
// sees exits and deaths, not just the living.
func (r *DockerReporter) List(ctx context.Context) ([]*types.ContainerInfo, error) {
	containers, err := r.cli.ContainerList(ctx, dockertypes.ContainerListOptions{All: true})
	if err != nil {
		return nil, errdefs.Unavailable(err, "container list failed")
	}

	infos := make([]*types.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		inspect, err := r.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			// The container may have vanished between list and inspect.
			continue
		}

		info := &types.ContainerInfo{
			ID:          c.ID,
			Name:        containerName(inspect.Name, c.Names),
			Image:       c.Image,
			NodeName:    r.nodeName,
			Annotations: inspect.Config.Labels,
		}
		if inspect.State != nil {
			info.Status = inspect.State.Status
			info.Running = inspect.State.Running
			info.Paused = inspect.State.Paused
			info.Dead = inspect.State.Dead
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Close releases the runtime client.
func (r *DockerReporter) Close() error {
	return r.cli.Close()
}

func containerName(inspectName string, listNames []string) string {
	name := inspectName
	if name == "" && len(listNames) > 0 {
		name = listNames[0]
	}
	return strings.TrimPrefix(name, "/")
}
