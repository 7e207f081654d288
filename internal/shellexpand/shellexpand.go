// Package shellexpand expands "~" and "$VAR"/"${VAR}" references in
// user-supplied file paths, the way a POSIX shell would before handing the
// path to open(2) (: "Shell-expands ~ and $VAR in any user-supplied
// path").
package shellexpand

import (
	"os"
	"strings"
)

// Path expands a leading "~" (or "~/...") against the current user's home
// directory, then expands any "$VAR"/"${VAR}" environment references in the
// result via os.Expand.
func Path(path string) (string, error) {
	expanded, err := expandTilde(path)
	if err != nil {
		return "", err
	}
	return os.Expand(expanded, os.Getenv), nil
}

func expandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return home + path[1:], nil
}
