package amd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	ataSegment  = regexp.MustCompile(`/(ata(\d+))(/|$)`)
	pciFunction = regexp.MustCompile(`^[0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-9a-fA-F]$`)
)

// nvmePort resolves an NVMe controller path to its physical port by
// matching the device's PCI address against the platform slot registry.
// The last path segment of the form bus:device.function names the
// drive's PCI function; controller paths may continue past it into the
// nvme character-device directory. The function suffix is stripped and
// the bare address compared against each slot's "address" attribute.
// The matching slot's directory name is the port number.
func nvmePort(slotsDir, path string) (int, error) {
	addr := ""
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if pciFunction.MatchString(segments[i]) {
			addr = segments[i][:strings.LastIndex(segments[i], ".")]
			break
		}
	}
	if addr == "" {
		return 0, fmt.Errorf("no PCI function segment in path %s", path)
	}

	entries, err := os.ReadDir(slotsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read slot registry %s: %w", slotsDir, err)
	}
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(slotsDir, entry.Name(), "address"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != addr {
			continue
		}
		port, err := strconv.Atoi(entry.Name())
		if err != nil {
			return 0, fmt.Errorf("slot %q for address %s is not numeric: %w", entry.Name(), addr, err)
		}
		return port, nil
	}
	return 0, fmt.Errorf("no slot registry entry matches address %s", addr)
}

// sataPort extracts the ATA controller number from a hardware path.
func sataPort(path string) (int, error) {
	m := ataSegment.FindStringSubmatch(path)
	if m == nil {
		return 0, fmt.Errorf("no ata segment in path %s", path)
	}
	port, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("invalid ata port in path %s: %w", path, err)
	}
	return port, nil
}

// truncateAtaPath cuts the path through and including the separator
// after its ataNN segment, yielding the controller directory used by
// the SGPIO sysfs walk.
func truncateAtaPath(path string) (string, bool) {
	loc := ataSegment.FindStringSubmatchIndex(path)
	if loc == nil {
		return "", false
	}
	// End of the ataNN group plus its trailing separator.
	end := loc[3]
	if end < len(path) && path[end] == '/' {
		end++
	}
	return path[:end], true
}

// findFilePath walks dir depth-first looking for an entry whose name
// starts with prefix and returns the directory containing it. Each
// directory is visited at most once and unreadable entries are skipped
// rather than treated as fatal.
func findFilePath(dir, prefix string) (string, bool) {
	visited := make(map[string]bool)
	return findFile(dir, prefix, visited)
}

func findFile(dir, prefix string, visited map[string]bool) (string, bool) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if visited[resolved] {
		return "", false
	}
	visited[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			return dir, true
		}
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if found, ok := findFile(filepath.Join(dir, entry.Name()), prefix, visited); ok {
			return found, true
		}
	}
	return "", false
}
