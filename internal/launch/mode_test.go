package launch

import (
	"reflect"
	"testing"

	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantMode   types.LaunchMode
		wantErr    bool
		wantBundle string
		wantTarget string
		wantArgs   []string
	}{
		{
			name:     "no arguments",
			args:     nil,
			wantMode: types.LaunchModeNormal,
		},
		{
			name:     "user arguments",
			args:     []string{"--channel", "foo", "--skip-update"},
			wantMode: types.LaunchModeNormal,
		},
		{
			name:     "marker after separator is forwarded data",
			args:     []string{"--", "--apply-update", "x.zip"},
			wantMode: types.LaunchModeNormal,
		},
		{
			name:       "full helper invocation",
			args:       []string{"--apply-update", "/c/b.tar.gz", "--target-exe", "/opt/td/twitchdesk-desktop", "--", "--channel", "foo", "--skip-update"},
			wantMode:   types.LaunchModeApply,
			wantBundle: "/c/b.tar.gz",
			wantTarget: "/opt/td/twitchdesk-desktop",
			wantArgs:   []string{"--channel", "foo", "--skip-update"},
		},
		{
			name:       "target defaults to self",
			args:       []string{"--apply-update=/c/b.zip"},
			wantMode:   types.LaunchModeApply,
			wantBundle: "/c/b.zip",
			wantTarget: "/self",
			wantArgs:   []string{},
		},
		{
			name:     "marker without bundle",
			args:     []string{"--apply-update"},
			wantMode: types.LaunchModeApply,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.args, "/self")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decide() error = %v, wantErr %v", err, tt.wantErr)
			}
			if d.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", d.Mode, tt.wantMode)
			}
			if tt.wantErr || tt.wantMode == types.LaunchModeNormal {
				if d.Invocation != nil {
					t.Errorf("Invocation = %+v, want nil", d.Invocation)
				}
				return
			}
			if d.Invocation.BundlePath != tt.wantBundle || d.Invocation.TargetExe != tt.wantTarget {
				t.Errorf("Invocation = %+v", d.Invocation)
			}
			if !reflect.DeepEqual(d.Invocation.RelaunchArgs, tt.wantArgs) {
				t.Errorf("RelaunchArgs = %v, want %v", d.Invocation.RelaunchArgs, tt.wantArgs)
			}
		})
	}
}
