// Package gitrepo implements the SourceControl port on go-git.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/bnema/shipit/internal/domain"
	"github.com/bnema/shipit/internal/logging"
)

// DefaultRemote is used when no remote is configured.
const DefaultRemote = "origin"

// Config controls tagging and pushing.
type Config struct {
	Remote      string `mapstructure:"remote"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
	// Token authenticates HTTPS pushes. SSH remotes use the agent.
	Token string `mapstructure:"-"`
}

// Repo is a working-tree repository.
type Repo struct {
	repo *git.Repository
	cfg  Config
	now  func() time.Time
}

// Open opens the repository containing path.
func Open(path string, cfg Config) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, domain.Configuration("open repository",
			fmt.Errorf("failed to open git repository at %s: %w", path, err),
			"run shipit inside the project's git checkout")
	}
	return newRepo(repo, cfg), nil
}

func newRepo(repo *git.Repository, cfg Config) *Repo {
	if cfg.Remote == "" {
		cfg.Remote = DefaultRemote
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "shipit"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "shipit@localhost"
	}
	return &Repo{repo: repo, cfg: cfg, now: time.Now}
}

func (r *Repo) signature() *object.Signature {
	return &object.Signature{Name: r.cfg.AuthorName, Email: r.cfg.AuthorEmail, When: r.now()}
}

// CurrentBranch returns the short name of the checked out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", domain.Validation("current branch", domain.ErrDetachedHead, "check out a release branch")
	}
	return head.Name().Short(), nil
}

// HeadCommit returns the hash of HEAD.
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// HasUncommittedChanges reports staged or unstaged modifications of tracked
// files. Untracked files are ignored.
func (r *Repo) HasUncommittedChanges(ctx context.Context) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// TagExists reports whether refs/tags/<name> exists.
func (r *Repo) TagExists(ctx context.Context, name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewTagReferenceName(name), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up tag %s: %w", name, err)
	}
	return true, nil
}

// CreateTag creates an annotated tag at HEAD. An existing tag is never
// moved: domain.ErrTagExists is returned instead.
func (r *Repo) CreateTag(ctx context.Context, name, message string) error {
	log := logging.FromCtx(ctx)

	exists, err := r.TagExists(ctx, name)
	if err != nil {
		return domain.NewError(domain.KindTag, "create tag", fmt.Errorf("%w: %w", domain.ErrTag, err), "")
	}
	if exists {
		return domain.NewError(domain.KindTag, "create tag",
			fmt.Errorf("%w: %s", domain.ErrTagExists, name),
			fmt.Sprintf("inspect the existing tag with: git show %s", name))
	}

	head, err := r.repo.Head()
	if err != nil {
		return domain.NewError(domain.KindTag, "create tag", fmt.Errorf("%w: resolve HEAD: %w", domain.ErrTag, err), "")
	}
	if message == "" {
		message = name
	}
	if _, err := r.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger:  r.signature(),
		Message: message,
	}); err != nil {
		return domain.NewError(domain.KindTag, "create tag", fmt.Errorf("%w: %w", domain.ErrTag, err), "")
	}

	log.Info().Str("tag", name).Str("commit", head.Hash().String()).Msg("tag created")
	return nil
}

// PushTag pushes refs/tags/<name> to the configured remote.
func (r *Repo) PushTag(ctx context.Context, name string) error {
	log := logging.FromCtx(ctx)

	ref := config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", name, name))
	opts := &git.PushOptions{
		RemoteName: r.cfg.Remote,
		RefSpecs:   []config.RefSpec{ref},
		Auth:       r.auth(),
	}
	err := r.repo.PushContext(ctx, opts)
	switch {
	case err == nil:
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		log.Debug().Str("tag", name).Msg("tag already on remote")
	case errors.Is(err, git.ErrRemoteNotFound):
		return domain.NewError(domain.KindTag, "push tag",
			fmt.Errorf("%w: remote %q not found", domain.ErrPush, r.cfg.Remote),
			"set git.remote in shipit.toml")
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return domain.NewError(domain.KindTag, "push tag",
			fmt.Errorf("%w: %w", domain.ErrPush, err),
			"set SHIPIT_GIT_TOKEN or push by hand: git push "+r.cfg.Remote+" "+name)
	default:
		return domain.NewError(domain.KindTag, "push tag",
			fmt.Errorf("%w: %w", domain.ErrPush, err),
			"push by hand: git push "+r.cfg.Remote+" "+name)
	}

	log.Info().Str("tag", name).Str("remote", r.cfg.Remote).Msg("tag pushed")
	return nil
}

func (r *Repo) auth() transport.AuthMethod {
	if r.cfg.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: r.cfg.Token}
}

// CommitFiles stages paths and commits them. Paths may be absolute or
// relative to the worktree root.
func (r *Repo) CommitFiles(ctx context.Context, message string, paths ...string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	root := wt.Filesystem.Root()
	for _, p := range paths {
		rel := p
		if filepath.IsAbs(p) {
			if rel, err = filepath.Rel(root, p); err != nil {
				return "", fmt.Errorf("failed to resolve %s: %w", p, err)
			}
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return "", fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}

	sig := r.signature()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	logging.FromCtx(ctx).Info().Str("commit", hash.String()).Msg("committed")
	return hash.String(), nil
}
