// Package utils provides file system utilities for scanning.
package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/security-cli/secretshield/pkg/failure"
)

// FileWalker lists the files under a root, pruning excluded subtrees.
type FileWalker struct {
	exclude        []*regexp.Regexp
	followSymlinks bool
	skipBinary     bool
}

// NewFileWalker creates a new file walker with the given options.
func NewFileWalker(opts ...FileWalkerOption) *FileWalker {
	fw := &FileWalker{}
	for _, opt := range opts {
		opt(fw)
	}
	return fw
}

// FileWalkerOption is a functional option for FileWalker.
type FileWalkerOption func(*FileWalker)

// WithExclude sets the path patterns that exclude a file or directory.
// Directories are tested with a trailing slash.
func WithExclude(patterns []*regexp.Regexp) FileWalkerOption {
	return func(fw *FileWalker) {
		fw.exclude = patterns
	}
}

// WithFollowSymlinks includes symlinks that resolve to regular files.
// Symlinked directories and dangling links are always left out.
func WithFollowSymlinks(follow bool) FileWalkerOption {
	return func(fw *FileWalker) {
		fw.followSymlinks = follow
	}
}

// WithSkipBinary drops files whose extension marks them as binary.
func WithSkipBinary(skip bool) FileWalkerOption {
	return func(fw *FileWalker) {
		fw.skipBinary = skip
	}
}

// Walk returns every eligible file under root. Excluded directories are
// never descended into. Any directory read failure aborts the walk with a
// SCAN_ERROR.
func (fw *FileWalker) Walk(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return failure.New(failure.KindScan, "read directory", path, err)
		}

		if d.IsDir() {
			if path != root && fw.Excluded(path+string(filepath.Separator)) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !fw.followSymlinks || !linksToFile(path) {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if fw.Excluded(path) {
			return nil
		}
		if fw.skipBinary && IsBinaryFile(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func linksToFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Excluded reports whether path matches any exclude pattern. Paths are
// matched with forward slashes.
func (fw *FileWalker) Excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, re := range fw.exclude {
		if re.MatchString(slashed) {
			return true
		}
	}
	return false
}

var binaryExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".ico": true, ".webp": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".ppt": true, ".pptx": true,
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".rar": true,
	".7z": true, ".bz2": true, ".xz": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mbtiles": true, ".pbf": true,
}

// IsBinaryFile checks if a file is likely binary by its extension.
func IsBinaryFile(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}

// FormatSize formats a file size for display.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
