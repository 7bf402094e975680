package utils

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// SafeJoinDir performs a filepath.Join of 'parent' and 'subdir' but returns an error
// if the resulting path points outside of 'parent'.
// See also https://github.com/cyphar/filepath-securejoin.
func SafeJoinDir(parent, subdir string) (string, error) {
	res := filepath.Join(parent, subdir)
	if !strings.HasPrefix(filepath.Clean(res), filepath.Clean(parent)+string(os.PathSeparator)) {
		return res, errors.Errorf("unsafe path join: '%s' with '%s'", parent, subdir)
	}
	return res, nil
}

// TempPath returns the hidden sibling of fn used while fn is being replaced by a writer that
// needs a named file.
func TempPath(fn string) string {
	dir, base := filepath.Split(fn)
	return filepath.Join(dir, "."+base+".tmp"+filepath.Ext(base))
}

// WriteFileAtomic writes fn through write. The data goes to a temporary file in the same
// directory which is synced and then renamed over fn, so fn either keeps its old contents or
// holds everything write produced. Nothing is left behind on failure.
func WriteFileAtomic(fn string, perm os.FileMode, write func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(fn)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %s", fn)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpName)
		}
	}()

	buffered := bufio.NewWriter(tmp)
	err = write(buffered)
	if err == nil {
		err = buffered.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	err = multierr.Combine(err, tmp.Close())
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", fn)
	}
	// CreateTemp makes the file 0600.
	if err = os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return RenameInto(tmpName, fn)
}

// RenameInto moves a finished temporary file over fn, removing it if the move fails.
func RenameInto(tmpName, fn string) error {
	if err := os.Rename(tmpName, fn); err != nil {
		RemoveFileNoError(tmpName)
		return errors.Wrapf(err, "failed to move %s into place", fn)
	}
	return nil
}
