package playbook

import (
	"fmt"
	"os"
	"regexp"
)

// EnvSource resolves a variable name to a value. The source must be
// trusted: interpolated templates are ultimately executed as shell
// commands. That trust boundary is documented, not enforced here.
type EnvSource func(name string) (string, bool)

// OSEnv resolves variables from the process environment
func OSEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// ${VAR} or ${VAR:-default}
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Interpolate substitutes ${VAR} and ${VAR:-default} references in a
// command template. A reference with no value and no default is an
// error so a broken environment is caught at load time, not mid-recovery.
func Interpolate(template string, env EnvSource) (string, error) {
	if env == nil {
		env = OSEnv
	}

	var missing string
	out := varPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]

		if value, ok := env(name); ok {
			return value
		}
		if hasDefault {
			return def
		}
		if missing == "" {
			missing = name
		}
		return match
	})

	if missing != "" {
		return "", fmt.Errorf("undefined variable %q in template %q", missing, template)
	}
	return out, nil
}
