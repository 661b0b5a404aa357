package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// CopyTree recursively copies the directory tree at src to dst, preserving
// file permission bits and modification timestamps. dst must not exist yet;
// it is created with the source directory's permissions.
//
// On error the partially written destination is left in place; callers that
// need all-or-nothing semantics remove dst themselves.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrap(err, "stat source directory")
	}
	if !info.IsDir() {
		return errors.Newf("source %s is not a directory", src)
	}

	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return errors.Wrap(err, "creating destination directory")
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrap(err, "reading source directory")
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := CopyFilePreserving(srcPath, dstPath); err != nil {
			return err
		}
	}

	// Restore the directory mtime after populating it; creating children
	// updates the directory timestamp.
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Wrapf(err, "preserving timestamps of %s", dst)
	}

	return nil
}

// CopyFilePreserving copies a single file from src to dst, preserving the
// source's permission bits and modification timestamp.
func CopyFilePreserving(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return errors.Wrap(err, "stat source file")
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating destination file")
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.Wrap(err, "copying file")
	}

	if err := dstFile.Close(); err != nil {
		return errors.Wrap(err, "closing destination file")
	}

	if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return errors.Wrap(err, "setting permissions")
	}

	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return errors.Wrap(err, "preserving timestamps")
	}

	return nil
}
