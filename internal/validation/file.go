package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

var (
	// AudioConstraints covers the track formats artists upload behind a gate.
	// FLAC has no magic-number entry in http.DetectContentType, so
	// application/octet-stream is allowed and the extension check carries
	// the weight for it.
	AudioConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"audio/mpeg":               true,
			"audio/wave":               true,
			"audio/aiff":               true,
			"application/octet-stream": true,
		},
		AllowedExtensions: map[string]bool{
			".mp3":  true,
			".wav":  true,
			".aiff": true,
			".flac": true,
		},
		MaxSize: 200 << 20, // 200MB
	}

	// ArchiveConstraints covers sample packs and stem bundles.
	ArchiveConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"application/zip": true,
		},
		AllowedExtensions: map[string]bool{
			".zip": true,
		},
		MaxSize: 500 << 20, // 500MB
	}
)

// ValidateFile validates a file upload against one or more constraint sets.
// With multiple sets the file must match at least one, so
// ValidateFile(header, AudioConstraints, ArchiveConstraints) allows a track
// or a sample pack.
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) error {
	if len(constraints) == 0 {
		return fmt.Errorf("no file constraints provided")
	}

	var lastErr error
	for _, constraint := range constraints {
		err := validateAgainstConstraint(header, constraint)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return lastErr
}

func validateAgainstConstraint(header *multipart.FileHeader, constraints FileConstraints) error {
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType reads at most 512 bytes
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}

	seeker, ok := file.(io.Seeker)
	if ok {
		_, err = seeker.Seek(0, 0)
		if err != nil {
			return fmt.Errorf("failed to reset file pointer: %w", err)
		}
	}

	// Sniff the real content type from magic numbers, not the client header
	detectedType := http.DetectContentType(buffer[:n])

	if !constraints.AllowedMimeTypes[detectedType] {
		return fmt.Errorf("invalid file type (detected: %s)", detectedType)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return fmt.Errorf("invalid file extension: %s", ext)
	}

	return nil
}
