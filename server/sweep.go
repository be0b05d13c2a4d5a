package server

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// newSweeper 定期清理上传目录中超过 ttl 的遗留文件（进程崩溃时没删掉的）
func newSweeper(dir string, ttl time.Duration, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := sweep(dir, ttl, time.Now())
		if err != nil {
			slog.Warn("sweep uploads", "dir", dir, "err", err)
		}
		if n > 0 {
			slog.Info("swept stale uploads", "dir", dir, "removed", n)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func sweep(dir string, ttl time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var removed int
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < ttl {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
