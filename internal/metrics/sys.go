package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
)

// SysHealth is the process snapshot shown alongside the usage report:
// memory, goroutine count and the on-disk size of the data directory.
type SysHealth struct {
	AllocMB    uint64
	SysMB      uint64
	Goroutines int
	DataSize   string
}

// GetSysHealth samples the running process. dataPath is the directory
// holding the sqlite database.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:    m.Alloc >> 20,
		SysMB:      m.Sys >> 20,
		Goroutines: runtime.NumGoroutine(),
		DataSize:   formatBytes(dirSize(dataPath)),
	}
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
