package domain

import "time"

// PublishedFile is one distribution file known to the registry.
type PublishedFile struct {
	Filename    string
	PackageType string
	Digest      string
	URL         string
	Size        int64
	UploadedAt  time.Time
}

// PublishedMetadata describes a version as the registry reports it.
type PublishedMetadata struct {
	Name    string
	Version Version
	Yanked  bool
	Files   []PublishedFile
}

// HasKind reports whether a file of the given artifact kind was published.
func (m *PublishedMetadata) HasKind(kind ArtifactKind) bool {
	if m == nil {
		return false
	}
	for _, f := range m.Files {
		if k, ok := ClassifyArtifact(f.Filename); ok && k == kind {
			return true
		}
	}
	return false
}

// Issue is a tracking issue filed with the ticketing system.
type Issue struct {
	Title  string
	Body   string
	Labels []string
}
