package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// PathError reports a command argument that could not be resolved.
type PathError struct {
	Code    string
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Path)
}

// collectScenarioFiles expands paths into scenario files. Directories are
// walked recursively for .yaml and .yml files; explicit files are kept as
// given. A non-empty filter is matched against each walked file's base
// name. Walked files come back sorted per directory argument.
func collectScenarioFiles(paths []string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, &PathError{Code: ErrCodeGeneric, Path: filter, Message: "invalid filter pattern"}
		}
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PathError{Code: ErrCodeNotFound, Path: path, Message: "path not found"}
		}
		if err != nil {
			return nil, &PathError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isScenarioFile(p) {
				return nil
			}
			if filter != "" {
				if ok, _ := filepath.Match(filter, d.Name()); !ok {
					return nil
				}
			}
			found = append(found, p)
			return nil
		})
		if err != nil {
			return nil, &PathError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}

func isScenarioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// outputPathError reports a collection failure and maps it to a command error.
func outputPathError(f *OutputFormatter, err error) error {
	var pe *PathError
	if errors.As(err, &pe) {
		_ = f.Error(pe.Code, pe.Error(), nil)
	} else {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, "cannot resolve scenario paths", err)
}
