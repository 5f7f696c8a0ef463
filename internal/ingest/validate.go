package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// dangerousExtensions are executable formats that are rejected outright.
var dangerousExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".com": true,
	".scr": true,
	".vbs": true,
}

// ValidateUpload checks an uploaded file against size and safety constraints
// before any processing happens.
func ValidateUpload(filename string, content []byte, maxSizeMB int) error {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	sizeMB := float64(len(content)) / (1024 * 1024)
	if sizeMB > float64(maxSizeMB) {
		return fmt.Errorf("file size (%.1fMB) exceeds maximum allowed size (%dMB)", sizeMB, maxSizeMB)
	}
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if ext := strings.ToLower(filepath.Ext(filename)); dangerousExtensions[ext] {
		return fmt.Errorf("file type %s is not allowed for security reasons", ext)
	}
	if len(content) == 0 {
		return fmt.Errorf("file is empty")
	}
	return nil
}
