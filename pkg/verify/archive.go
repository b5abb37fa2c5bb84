// Package verify checks that built distributions are readable archives
// carrying the metadata registries require.
package verify

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// ErrInvalidArchive is returned for archives that cannot be read or lack
// required metadata.
var ErrInvalidArchive = errors.New("invalid distribution archive")

// Archive dispatches on the file name: wheels, gzipped tar and zip source
// distributions.
func Archive(filePath string) error {
	name := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(name, ".whl"):
		return Wheel(filePath)
	case strings.HasSuffix(name, ".tar.gz"):
		return SdistTarGz(filePath)
	case strings.HasSuffix(name, ".zip"):
		return SdistZip(filePath)
	default:
		return fmt.Errorf("%w: %s: unknown archive type", ErrInvalidArchive, filePath)
	}
}

// Wheel checks that the wheel is a zip with a .dist-info directory holding
// METADATA and WHEEL.
func Wheel(filePath string) error {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArchive, filePath, err)
	}
	defer r.Close()

	var metadata, wheel bool
	for _, f := range r.File {
		dir, base := path.Split(f.Name)
		if !strings.HasSuffix(strings.TrimSuffix(dir, "/"), ".dist-info") {
			continue
		}
		switch base {
		case "METADATA":
			metadata = true
		case "WHEEL":
			wheel = true
		}
	}
	if !metadata || !wheel {
		return fmt.Errorf("%w: %s: missing .dist-info/METADATA or WHEEL", ErrInvalidArchive, filePath)
	}
	return nil
}

// SdistTarGz checks that the source distribution is a gzipped tar with a
// top-level PKG-INFO.
func SdistTarGz(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArchive, filePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidArchive, filePath, err)
		}
		if isTopLevelPkgInfo(hdr.Name) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: missing PKG-INFO", ErrInvalidArchive, filePath)
}

// SdistZip checks a zip source distribution for a top-level PKG-INFO.
func SdistZip(filePath string) error {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArchive, filePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if isTopLevelPkgInfo(f.Name) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: missing PKG-INFO", ErrInvalidArchive, filePath)
}

// isTopLevelPkgInfo matches "<name>-<version>/PKG-INFO".
func isTopLevelPkgInfo(name string) bool {
	name = strings.TrimPrefix(name, "./")
	dir, base := path.Split(name)
	return base == "PKG-INFO" && dir != "" && strings.Count(dir, "/") == 1
}
