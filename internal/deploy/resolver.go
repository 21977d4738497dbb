package deploy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// scriptSuffix is the naming convention for deploy scripts: an application
// "foo" is deployed by "foo.deploy" inside the resolver directory.
const scriptSuffix = ".deploy"

// ErrUnknownApp reports that no deploy script exists for an application.
// Surfaced to the trigger caller before any job is created.
var ErrUnknownApp = errors.New("unknown application")

// Resolver maps application names to deploy script paths.
type Resolver struct {
	dir string
}

// NewResolver returns a resolver rooted at dir. Empty dir means the current
// working directory.
func NewResolver(dir string) (Resolver, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Resolver{}, err
		}
		dir = cwd
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Resolver{}, err
	}
	if !info.IsDir() {
		return Resolver{}, errors.New("deploy dir is not a directory: " + dir)
	}
	return Resolver{dir: dir}, nil
}

// Resolve validates the application name and returns the script path, or
// ErrUnknownApp if the name is unsafe or the script is not a regular file.
func (r Resolver) Resolve(app string) (string, error) {
	if app == "" || app != filepath.Base(app) || strings.HasPrefix(app, ".") {
		return "", ErrUnknownApp
	}

	path := filepath.Join(r.dir, app+scriptSuffix)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrUnknownApp
	}
	return path, nil
}
