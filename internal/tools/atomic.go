package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StagedFile is one file's pending change, computed entirely in memory
// before any disk mutation happens.
type StagedFile struct {
	Path        string
	Existed     bool
	Permissions os.FileMode
	Bytes       []byte
}

// ApplyStagedFiles commits a batch of StagedFile changes atomically: every
// file is written to a temp sibling first, then all existing targets are
// renamed to timestamped backups, then all temps are renamed onto the real
// targets. Any failure at any phase restores every backup already taken and
// removes any temp files created, so a partial failure never leaves a mix
// of old and new content on disk. On full success, backups are removed.
func ApplyStagedFiles(staged []StagedFile) error {
	type committed struct {
		target  string
		backup  string
		existed bool
		tempPath string
	}

	var done []committed
	rollback := func() {
		for _, c := range done {
			if c.existed && c.backup != "" {
				_ = os.Rename(c.backup, c.target)
			} else {
				_ = os.Remove(c.target)
			}
			if c.tempPath != "" {
				_ = os.Remove(c.tempPath)
			}
		}
	}

	tempPaths := make([]string, len(staged))
	for i, sf := range staged {
		temp, err := writeTempSibling(sf)
		if err != nil {
			for _, t := range tempPaths {
				if t != "" {
					_ = os.Remove(t)
				}
			}
			return fmt.Errorf("tools: staging %s: %w", sf.Path, err)
		}
		tempPaths[i] = temp
	}

	for i, sf := range staged {
		var backup string
		if sf.Existed {
			b, err := uniqueBackupPath(sf.Path)
			if err != nil {
				rollback()
				cleanupTemps(tempPaths)
				return fmt.Errorf("tools: computing backup path for %s: %w", sf.Path, err)
			}
			if err := os.Rename(sf.Path, b); err != nil {
				rollback()
				cleanupTemps(tempPaths)
				return fmt.Errorf("tools: backing up %s: %w", sf.Path, err)
			}
			backup = b
		}
		done = append(done, committed{target: sf.Path, backup: backup, existed: sf.Existed, tempPath: tempPaths[i]})
	}

	for i, sf := range staged {
		if err := os.Rename(tempPaths[i], sf.Path); err != nil {
			rollback()
			return fmt.Errorf("tools: committing %s: %w", sf.Path, err)
		}
	}

	for _, c := range done {
		if c.backup != "" {
			_ = os.Remove(c.backup)
		}
	}
	return nil
}

func writeTempSibling(sf StagedFile) (string, error) {
	dir := filepath.Dir(sf.Path)
	perm := sf.Permissions
	if perm == 0 {
		perm = 0644
	}
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(sf.Path)+"-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(sf.Bytes); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), perm); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func uniqueBackupPath(path string) (string, error) {
	base := path + "." + time.Now().UTC().Format("20060102T150405.000000000") + ".bak"
	for i := 0; i < 1000; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s.%d", base, i)
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("tools: could not find a unique backup path for %s", path)
}

func cleanupTemps(paths []string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}
