package deploy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DependenciesDir is the subdirectory of a build output holding framework
// packages the apps depend on.
const DependenciesDir = "Dependencies"

const packageExt = ".appx"

// PackageFiles lists the packages found in a build output directory.
type PackageFiles struct {
	Dependencies []string // searched recursively under Dependencies/
	Apps         []string // top level of the directory only
}

// Empty reports whether no package files were found
func (f PackageFiles) Empty() bool {
	return len(f.Dependencies) == 0 && len(f.Apps) == 0
}

// FindPackageFiles scans root for .appx files. A missing Dependencies
// directory is not an error; a missing root is.
func FindPackageFiles(root string) (PackageFiles, error) {
	var files PackageFiles

	entries, err := os.ReadDir(root)
	if err != nil {
		return files, fmt.Errorf("failed to read package directory: %w", err)
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && isPackageFile(entry.Name()) {
			files.Apps = append(files.Apps, filepath.Join(root, entry.Name()))
		}
	}

	depRoot := filepath.Join(root, DependenciesDir)
	err = filepath.WalkDir(depRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && isPackageFile(d.Name()) {
			files.Dependencies = append(files.Dependencies, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return files, fmt.Errorf("failed to scan dependencies: %w", err)
	}

	slices.Sort(files.Apps)
	slices.Sort(files.Dependencies)
	return files, nil
}

func isPackageFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), packageExt)
}

// AppNameFromFile extracts the app name from a package file named
// AppName_Version_Architecture.appx.
func AppNameFromFile(path string) (string, error) {
	base := filepath.Base(path)
	name, _, found := strings.Cut(base, "_")
	if !found || name == "" {
		return "", fmt.Errorf("cannot extract app name from %q: expected AppName_Version_Architecture.appx", base)
	}
	return name, nil
}
