package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// Publish uploads every artifact through the legacy upload API. Uploads are
// not retried: a repeated upload of an accepted file is rejected by the
// index.
func (c *Client) Publish(ctx context.Context, target domain.PublishTarget, name string, version domain.Version, artifacts []domain.BuildArtifact, token string) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "registry",
		logging.FieldAction:  "Publish",
		logging.FieldTarget:  string(target),
		logging.FieldVersion: version.String(),
	})
	log := logging.FromCtx(ctx)

	if token == "" {
		return domain.Configuration("publish",
			fmt.Errorf("%w: %w", domain.ErrPublish, domain.ErrAuth),
			"set SHIPIT_REGISTRY_TOKEN and re-run")
	}
	e, err := c.endpoint(target)
	if err != nil {
		return err
	}
	if e.UploadURL == "" {
		return domain.Configuration("publish",
			fmt.Errorf("%w: no upload_url for %s registry", domain.ErrInvalidConfig, target),
			fmt.Sprintf("set registry.%s.upload_url in shipit.toml", target))
	}

	for _, a := range artifacts {
		if err := c.upload(ctx, e.UploadURL, name, version, a, token); err != nil {
			return domain.NewError(domain.KindPublish, "upload "+a.Filename(),
				fmt.Errorf("%w: %w", domain.ErrPublish, err),
				"check the registry for a partial upload before re-running")
		}
		log.Info().Str("artifact", a.Filename()).Msg("artifact uploaded")
	}
	return nil
}

func (c *Client) upload(ctx context.Context, uploadURL, name string, version domain.Version, a domain.BuildArtifact, token string) error {
	body, contentType, err := uploadForm(name, version, a)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth("__token__", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// uploadForm builds the multipart body of a file_upload action.
func uploadForm(name string, version domain.Version, a domain.BuildArtifact) (io.Reader, string, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{":action", "file_upload"},
		{"protocol_version", "1"},
		{"metadata_version", "2.1"},
		{"name", name},
		{"version", version.String()},
		{"filetype", string(a.Kind)},
		{"pyversion", pyVersion(a)},
		{"sha256_digest", a.Checksum},
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}
	part, err := w.CreateFormFile("content", a.Filename())
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// pyVersion is "source" for sdists and the python tag of a wheel file name
// (name-version-pytag-abitag-platform.whl).
func pyVersion(a domain.BuildArtifact) string {
	if a.Kind == domain.SourceDist {
		return "source"
	}
	parts := strings.Split(strings.TrimSuffix(a.Filename(), ".whl"), "-")
	if len(parts) >= 5 {
		return parts[len(parts)-3]
	}
	return "py3"
}
