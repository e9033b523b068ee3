package build_test

import (
	"testing"

	"github.com/rohmanhakim/scroll-gateway/internal/build"
)

func TestFullVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{
			name:    "default values",
			version: "dev",
			commit:  "none",
			want:    "dev+none",
		},
		{
			name:    "tagged release",
			version: "1.2.0",
			commit:  "f00dcafe",
			want:    "1.2.0+f00dcafe",
		},
		{
			name:    "prerelease with long commit hash",
			version: "2.0.0-rc1",
			commit:  "89dece58db957dbc4a9d03962b0411d05f9e37a5",
			want:    "2.0.0-rc1+89dece58db957dbc4a9d03962b0411d05f9e37a5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build.Version = tt.version
			build.Commit = tt.commit

			got := build.FullVersion()
			if got != tt.want {
				t.Errorf("FullVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
