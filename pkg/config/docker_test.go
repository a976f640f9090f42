package config

import (
	"testing"
)

func TestResolveHostForDocker_RemoteHostsUnchanged(t *testing.T) {
	// Remote hosts are never rewritten regardless of container status.
	tests := []string{
		"mydb.example.com",
		"192.168.1.100",
		"host.docker.internal",
	}

	for _, host := range tests {
		if got := ResolveHostForDocker(host); got != host {
			t.Errorf("ResolveHostForDocker(%q) = %q, want unchanged", host, got)
		}
	}
}

func TestResolveHostForDocker_LoopbackVariants(t *testing.T) {
	// Loopback rewriting only happens inside a container; assert both modes.
	for _, host := range []string{"localhost", "127.0.0.1"} {
		got := ResolveHostForDocker(host)
		if IsRunningInDocker() {
			if got != "host.docker.internal" {
				t.Errorf("ResolveHostForDocker(%q) in Docker = %q, want host.docker.internal", host, got)
			}
		} else if got != host {
			t.Errorf("ResolveHostForDocker(%q) outside Docker = %q, want unchanged", host, got)
		}
	}
}
