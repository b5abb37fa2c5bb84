package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// DeleteVersion removes name==version from the index. An already absent
// version counts as removed. The call is never retried.
func (c *Client) DeleteVersion(ctx context.Context, target domain.PublishTarget, name string, version domain.Version, token string) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "registry",
		logging.FieldAction:  "DeleteVersion",
		logging.FieldTarget:  string(target),
		logging.FieldVersion: version.String(),
	})
	log := logging.FromCtx(ctx)

	if token == "" {
		return domain.Configuration("delete release",
			fmt.Errorf("%w: %w", domain.ErrDelete, domain.ErrAuth),
			"set SHIPIT_REGISTRY_TOKEN with delete scope and re-run")
	}
	e, err := c.endpoint(target)
	if err != nil {
		return err
	}
	if e.ManageURL == "" {
		return domain.Configuration("delete release",
			fmt.Errorf("%w: no manage_url for %s registry", domain.ErrInvalidConfig, target),
			fmt.Sprintf("set registry.%s.manage_url in shipit.toml", target))
	}

	u := fmt.Sprintf("%s/projects/%s/releases/%s", e.ManageURL, url.PathEscape(name), url.PathEscape(version.String()))
	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth("__token__", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.KindNetwork, "delete release", fmt.Errorf("%w: %w", domain.ErrDelete, err), "")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Info().Msg("version already absent from registry")
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewError(domain.KindConfiguration, "delete release",
			fmt.Errorf("%w: %w", domain.ErrDelete, readStatusError(resp)),
			"the registry token needs delete permission for "+name)
	case resp.StatusCode >= 300:
		return domain.NewError(domain.KindNetwork, "delete release",
			fmt.Errorf("%w: %w", domain.ErrDelete, readStatusError(resp)), "")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	log.Info().Msg("version removed from registry")
	return nil
}
