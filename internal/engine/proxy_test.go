package engine

import "testing"

func TestCollapseRanges(t *testing.T) {
	tests := []struct {
		name  string
		ports []int
		want  string
	}{
		{"empty", nil, ""},
		{"single", []int{3000}, "3000"},
		{"pair run", []int{9000, 9001}, "9000-9001"},
		{"long run", []int{5000, 5001, 5002, 5003}, "5000-5003"},
		{"mixed", []int{3000, 5000, 5001, 5002, 5003, 8080, 9000, 9001, 7000}, "3000, 5000-5003, 8080, 9000-9001, 7000"},
		{"descending does not collapse", []int{3001, 3000}, "3001, 3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collapseRanges(tt.ports); got != tt.want {
				t.Errorf("collapseRanges(%v) = %q, want %q", tt.ports, got, tt.want)
			}
		})
	}
}

func TestVolumes(t *testing.T) {
	got := Volumes("workspace-demo")
	want := []string{"workspace-demo-home", "workspace-demo-docker", "workspace-demo-cache"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("volume %d = %q, want %q", i, got[i], want[i])
		}
	}
}
