package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

type fileJSON struct {
	Filename    string `json:"filename"`
	PackageType string `json:"packagetype"`
	Digests     struct {
		SHA256 string `json:"sha256"`
	} `json:"digests"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"upload_time_iso_8601"`
	Yanked     bool      `json:"yanked"`
}

type versionJSON struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Yanked  bool   `json:"yanked"`
	} `json:"info"`
	URLs []fileJSON `json:"urls"`
}

type projectJSON struct {
	Releases map[string][]fileJSON `json:"releases"`
}

// getJSON fetches url into target. found is false on 404.
func (c *Client) getJSON(ctx context.Context, url string, target any) (found bool, err error) {
	err = c.retryRead(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			found = false
			return nil
		}
		if resp.StatusCode >= 400 {
			return readStatusError(resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		found = true
		return nil
	})
	return found, err
}

// QueryVersion returns the published metadata of name==version, or nil when
// the index does not know that version.
func (c *Client) QueryVersion(ctx context.Context, target domain.PublishTarget, name string, version domain.Version) (*domain.PublishedMetadata, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "registry",
		logging.FieldAction:  "QueryVersion",
		logging.FieldTarget:  string(target),
	})
	e, err := c.endpoint(target)
	if err != nil {
		return nil, err
	}

	var doc versionJSON
	u := fmt.Sprintf("%s/pypi/%s/%s/json", e.IndexURL, url.PathEscape(name), url.PathEscape(version.String()))
	found, err := c.getJSON(ctx, u, &doc)
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, "query registry",
			fmt.Errorf("%w: %w", domain.ErrRegistryTransient, err), "")
	}
	if !found {
		return nil, nil
	}

	meta := &domain.PublishedMetadata{Name: doc.Info.Name, Version: version, Yanked: doc.Info.Yanked}
	for _, f := range doc.URLs {
		meta.Files = append(meta.Files, domain.PublishedFile{
			Filename:    f.Filename,
			PackageType: f.PackageType,
			Digest:      f.Digests.SHA256,
			URL:         f.URL,
			Size:        f.Size,
			UploadedAt:  f.UploadTime,
		})
	}
	return meta, nil
}

// ListVersions returns every version of name that still has at least one
// non-yanked file. A package the index does not know has an empty index.
func (c *Client) ListVersions(ctx context.Context, target domain.PublishTarget, name string) (domain.DeployedVersionIndex, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "registry",
		logging.FieldAction:  "ListVersions",
		logging.FieldTarget:  string(target),
	})
	log := logging.FromCtx(ctx)

	e, err := c.endpoint(target)
	if err != nil {
		return domain.DeployedVersionIndex{}, err
	}

	var doc projectJSON
	u := fmt.Sprintf("%s/pypi/%s/json", e.IndexURL, url.PathEscape(name))
	found, err := c.getJSON(ctx, u, &doc)
	if err != nil {
		hint := "check network access to " + e.IndexURL + " or pass the target version explicitly"
		if errors.Is(err, context.Canceled) {
			hint = ""
		}
		return domain.DeployedVersionIndex{}, domain.NewError(domain.KindNetwork, "list published versions",
			fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err), hint)
	}
	if !found {
		return domain.NewDeployedVersionIndex(name, nil), nil
	}

	versions := make([]domain.Version, 0, len(doc.Releases))
	for raw, files := range doc.Releases {
		if !hasLiveFile(files) {
			continue
		}
		v, err := domain.ParseVersion(raw)
		if err != nil {
			log.Debug().Str(logging.FieldVersion, raw).Msg("skipping non-semver release")
			continue
		}
		versions = append(versions, v)
	}
	return domain.NewDeployedVersionIndex(name, versions), nil
}

func hasLiveFile(files []fileJSON) bool {
	for _, f := range files {
		if !f.Yanked {
			return true
		}
	}
	return false
}
