package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/matzehuels/nope/pkg/errors"
	"github.com/matzehuels/nope/pkg/requirement"
)

// markerScript prints the PEP 508 marker variables of the running
// interpreter as a JSON object.
const markerScript = `import json, os, platform, sys
impl = sys.implementation
ver = "%d.%d.%d" % impl.version[:3]
if impl.version.releaselevel != "final":
    ver += impl.version.releaselevel[0] + str(impl.version.serial)
print(json.dumps({
    "implementation_name": impl.name,
    "implementation_version": ver,
    "os_name": os.name,
    "platform_machine": platform.machine(),
    "platform_python_implementation": platform.python_implementation(),
    "platform_release": platform.release(),
    "platform_system": platform.system(),
    "platform_version": platform.version(),
    "python_full_version": platform.python_version(),
    "python_version": ".".join(platform.python_version_tuple()[:2]),
    "sys_platform": sys.platform,
}))
`

// MarkerEnvironment asks python for the values of the environment marker
// variables, so requirements are filtered the way pip filters them when it
// installs for that interpreter.
func MarkerEnvironment(ctx context.Context, python string) (requirement.Environment, error) {
	if python == "" {
		python = DefaultPython
	}
	cmd := exec.CommandContext(ctx, python, "-c", markerScript) //nolint:gosec // interpreter is configured by the user
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "read marker environment from %s: %s",
			python, strings.TrimSpace(stderr.String()))
	}
	var env requirement.Environment
	if err := json.Unmarshal(out, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "read marker environment from %s", python)
	}
	return env, nil
}
