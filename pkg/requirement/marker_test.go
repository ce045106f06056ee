package requirement

import (
	"testing"
)

var linux311 = Environment{
	"python_version":         "3.11",
	"python_full_version":    "3.11.4",
	"implementation_name":    "cpython",
	"implementation_version": "3.11.4",
	"os_name":                "posix",
	"sys_platform":           "linux",
	"platform_system":        "Linux",
	"platform_machine":       "x86_64",
}

func TestEvaluateMarker(t *testing.T) {
	tests := []struct {
		marker string
		want   bool
	}{
		{`platform_system == "Windows"`, false},
		{`platform_system != "Windows"`, true},
		{`python_version < "3.8"`, false},
		{`python_version >= "3.8"`, true},
		{`python_version >= "3.10"`, true},
		{`python_full_version >= "3.11.5"`, false},
		{`python_version == "3.*"`, true},
		{`python_version ~= "3.9"`, true},
		{`"3.12" > python_version`, true},
		{`sys_platform == "win32" or sys_platform == "linux"`, true},
		{`sys_platform == "linux" and python_version < "3.8"`, false},
		{`(sys_platform == "win32" or os_name == "posix") and implementation_name == "cpython"`, true},
		{`implementation_name != 'pypy'`, true},
		{`platform_machine in "x86_64 aarch64"`, true},
		{`platform_machine not in "x86_64 aarch64"`, false},
		{`extra == "test"`, false},
		{`python_version >= "3.8" and extra == "socks"`, false},
		{`platform_release >= "5"`, true}, // not in the environment
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			got, err := EvaluateMarker(tt.marker, linux311)
			if err != nil {
				t.Fatalf("EvaluateMarker: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateMarker(%q) = %v, want %v", tt.marker, got, tt.want)
			}
		})
	}
}

func TestEvaluateMarkerErrors(t *testing.T) {
	for _, marker := range []string{
		`python_version <`,
		`python_version << "3"`,
		`(python_version < "3"`,
		`python_version < "3`,
		`python_version < "3" junk`,
		`sys_platform # "linux"`,
	} {
		if _, err := EvaluateMarker(marker, linux311); err == nil {
			t.Errorf("EvaluateMarker(%q) succeeded, want error", marker)
		}
	}
}

func TestApplies(t *testing.T) {
	tests := []struct {
		req  string
		env  Environment
		want bool
	}{
		{"requests", linux311, true},
		{`colorama; platform_system == "Windows"`, linux311, false},
		{`importlib-metadata; python_version < "3.8"`, linux311, false},
		{`importlib-metadata; python_version < "3.8"`, Environment{"python_version": "3.7"}, true},
		{`colorama; platform_system == "Windows"`, Environment{}, true},
		{`pytest; extra == "test"`, Environment{}, false},
	}

	for _, tt := range tests {
		got, err := MustParse(tt.req).Applies(tt.env)
		if err != nil {
			t.Fatalf("Applies(%q): %v", tt.req, err)
		}
		if got != tt.want {
			t.Errorf("%q Applies(%v) = %v, want %v", tt.req, tt.env, got, tt.want)
		}
	}
}

func TestHostEnvironment(t *testing.T) {
	env := HostEnvironment()
	for _, key := range []string{"os_name", "sys_platform", "platform_system"} {
		if env[key] == "" {
			t.Errorf("HostEnvironment()[%q] is empty", key)
		}
	}
	if _, ok := env["python_version"]; ok {
		t.Error("HostEnvironment sets python_version")
	}
}
