package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// filesByExtInDir returns all regular files with file extension ext found directly in directory
// dirPath. All files are returned if extension is empty.
func filesByExtInDir(dirPath, ext string) (files []string, err error) {
	// Open the directory.
	dirInfo, err := os.Stat(dirPath)
	if err != nil || !dirInfo.IsDir() {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access %q: %v", dirPath, err)
	}
	defer closeWithErrCheck(dir, &err)

	pathWithSep := dirPath
	if !strings.HasSuffix(dirPath, string(os.PathSeparator)) {
		pathWithSep = dirPath + string(os.PathSeparator)
	}

	// Iterate over all files in dir.
	files = make([]string, 0, 100)
	var fileList []os.FileInfo
	for fileList, err = dir.Readdir(100); len(fileList) > 0; fileList, err = dir.Readdir(100) {
		for _, file := range fileList {
			name := file.Name()
			filePath := pathWithSep + name
			// Must be a regular file or a symlink and have the requested extension/suffix.
			if (!file.Mode().IsRegular() && (file.Mode()&os.ModeSymlink == 0)) ||
					!strings.HasSuffix(name, ext) {
				continue
			}
			files = append(files, filePath)
		}
	}
	if err != nil && err != io.EOF {
		applog.Warn(applog.Fields{"dir": dirPath, "error": err.Error()},
			"failed to access some files in the directory")
	}

	return files, nil
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", fmt.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// copyFile copies the regular file at srcPath to dstPath, overwriting an existing file.
func copyFile(srcPath, dstPath string) (err error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("cannot read file %q: %v", srcPath, err)
	}
	defer closeWithErrCheck(src, &err)

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("cannot create file %q: %v", dstPath, err)
	}
	defer closeWithErrCheck(dst, &err)

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy %q to %q: %v", srcPath, dstPath, err)
	}

	return nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
