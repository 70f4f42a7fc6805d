package questionbank

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// SyncFromGit brings the pack directory in line with a question repository.
//
// First sync clones into the pack directory; later syncs pull. Either way
// the bank reloads afterwards, so a running service picks up new packs
// without a restart.
func (b *Bank) SyncFromGit(ctx context.Context, url, ref string) error {
	if url == "" {
		return errors.New("questionbank: git url is required")
	}

	if _, err := os.Stat(filepath.Join(b.dir, ".git")); os.IsNotExist(err) {
		opts := &git.CloneOptions{URL: url}
		if ref != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
			opts.SingleBranch = true
		}
		if _, err := git.PlainCloneContext(ctx, b.dir, false, opts); err != nil {
			return fmt.Errorf("cloning question packs: %w", err)
		}
		b.logger.Info("cloned question packs",
			zap.String("url", url),
			zap.String("ref", ref),
			zap.String("dir", b.dir),
		)
	} else {
		repo, err := git.PlainOpen(b.dir)
		if err != nil {
			return fmt.Errorf("opening question pack repository: %w", err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("opening worktree: %w", err)
		}

		opts := &git.PullOptions{RemoteName: "origin"}
		if ref != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
			opts.SingleBranch = true
		}
		if err := wt.PullContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("pulling question packs: %w", err)
		}
		b.logger.Info("pulled question packs", zap.String("dir", b.dir))
	}

	return b.Reload()
}
