package mailbox

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExtractZips expands zip attachments into an invoices subdirectory and
// passes other files through untouched. A zip that fails to extract is
// logged and skipped rather than stopping the run.
func ExtractZips(paths []string, dir string) ([]string, error) {
	extractDir := filepath.Join(dir, "invoices")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}

	var out []string
	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), ".zip") {
			out = append(out, path)
			continue
		}
		extracted, err := extractZip(path, extractDir)
		if err != nil {
			log.Error().Err(err).Str("zip", path).Msg("Failed to extract zip attachment")
			continue
		}
		out = append(out, extracted...)
	}
	return out, nil
}

func extractZip(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer zr.Close()

	var out []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		path, err := extractZipEntry(f, destDir)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	log.Info().Str("zip", zipPath).Int("files", len(out)).Msg("Extracted zip attachment")
	return out, nil
}

func extractZipEntry(f *zip.File, destDir string) (string, error) {
	// Entries that would land outside the extraction directory are refused.
	path := filepath.Join(destDir, filepath.Clean(f.Name))
	if !strings.HasPrefix(path, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("zip entry %s escapes extraction directory", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, rc); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
