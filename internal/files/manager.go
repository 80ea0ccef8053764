package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// TempPath returns a sibling path for staging writes to dst. Keeping the
// original extension lets format-sniffing writers (excelize) accept it.
func TempPath(dst string) string {
	ext := filepath.Ext(dst)
	base := dst[:len(dst)-len(ext)]
	return fmt.Sprintf("%s.tmp-%d%s", base, os.Getpid(), ext)
}

// ReplaceFile moves src over dst. Rename is atomic on the same filesystem;
// otherwise the content is copied and src removed.
func ReplaceFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	slog.Debug("Rename failed, copying instead",
		slog.String("src", src),
		slog.String("dst", dst))

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// FileExists checks if a regular file exists at the given path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	// Sync to ensure write is complete
	return dstFile.Sync()
}
