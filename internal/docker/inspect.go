package docker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/workspace-dev/workspace/internal/execx"
)

// ContainerState is the State block of docker inspect.
type ContainerState struct {
	Status    string `json:"Status"`
	Running   bool   `json:"Running"`
	StartedAt string `json:"StartedAt"`
}

// IsRunning reports whether the container is currently running.
func (s ContainerState) IsRunning() bool {
	return s.Running || s.Status == "running"
}

// ContainerDetails is the subset of docker inspect output the controller
// consumes.
type ContainerDetails struct {
	ID      string         `json:"Id"`
	Name    string         `json:"Name"`
	Created string         `json:"Created"`
	State   ContainerState `json:"State"`
	Config  struct {
		Image  string            `json:"Image"`
		Labels map[string]string `json:"Labels"`
	} `json:"Config"`
	NetworkSettings struct {
		Networks map[string]struct {
			IPAddress string `json:"IPAddress"`
		} `json:"Networks"`
	} `json:"NetworkSettings"`
}

// Networks returns the names of the networks the container is attached to.
func (d *ContainerDetails) Networks() []string {
	names := make([]string, 0, len(d.NetworkSettings.Networks))
	for n := range d.NetworkSettings.Networks {
		names = append(names, n)
	}
	return names
}

// InspectContainer returns the parsed inspect structure for a container, or
// nil when no such container exists.
func (c *Client) InspectContainer(ctx context.Context, nameOrID string) (*ContainerDetails, error) {
	res, err := c.runner.Captured(ctx, "docker", []string{"container", "inspect", nameOrID}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil {
		return nil, err
	}
	if res.Code != 0 {
		return nil, nil
	}

	var details []ContainerDetails
	if err := json.Unmarshal([]byte(res.Stdout), &details); err != nil {
		return nil, fmt.Errorf("parsing inspect output for %s: %w", nameOrID, err)
	}
	if len(details) == 0 {
		return nil, nil
	}
	return &details[0], nil
}
