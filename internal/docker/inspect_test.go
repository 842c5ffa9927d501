package docker

import (
	"encoding/json"
	"sort"
	"testing"
)

const sampleInspect = `[
  {
    "Id": "abc123",
    "Name": "/workspace-demo",
    "Created": "2026-08-01T10:00:00Z",
    "State": {"Status": "running", "Running": true, "StartedAt": "2026-08-01T10:00:01Z"},
    "Config": {"Image": "workspace:latest", "Labels": {"a": "b"}},
    "NetworkSettings": {
      "Networks": {
        "bridge": {"IPAddress": "172.17.0.2"},
        "workspace-internal-buildnet": {"IPAddress": "172.18.0.3"}
      }
    }
  }
]`

func TestContainerDetails_Parse(t *testing.T) {
	var details []ContainerDetails
	if err := json.Unmarshal([]byte(sampleInspect), &details); err != nil {
		t.Fatal(err)
	}
	if len(details) != 1 {
		t.Fatalf("got %d entries", len(details))
	}

	d := details[0]
	if d.ID != "abc123" {
		t.Errorf("ID = %q", d.ID)
	}
	if !d.State.IsRunning() {
		t.Error("running container reported stopped")
	}
	if d.Config.Image != "workspace:latest" {
		t.Errorf("Image = %q", d.Config.Image)
	}

	networks := d.Networks()
	sort.Strings(networks)
	if len(networks) != 2 || networks[1] != "workspace-internal-buildnet" {
		t.Errorf("Networks = %v", networks)
	}
}

func TestContainerState_IsRunning(t *testing.T) {
	tests := []struct {
		state ContainerState
		want  bool
	}{
		{ContainerState{Status: "running", Running: true}, true},
		{ContainerState{Status: "running"}, true},
		{ContainerState{Status: "exited"}, false},
		{ContainerState{Status: "created"}, false},
	}
	for _, tt := range tests {
		if got := tt.state.IsRunning(); got != tt.want {
			t.Errorf("IsRunning(%+v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
