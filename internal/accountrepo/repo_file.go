// Package accountrepo manages persistence layer of the ledger.
package accountrepo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// RepoFile persists the whole ledger in a single line-oriented text file.
type RepoFile struct {
	path string
}

// NewRepoFile returns RepoFile backed by the file at path.
func NewRepoFile(path string) *RepoFile {
	return &RepoFile{path: path}
}

// Path returns the ledger file location.
func (r *RepoFile) Path() string {
	return r.path
}

// LoadAll reads every account from the ledger file.
// A missing file is an empty ledger.
func (r *RepoFile) LoadAll(ctx context.Context) (domain.LoadResult, error) {
	l := zerolog.Ctx(ctx)

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.Info().Str("path", r.path).Msg("ledger file not found, starting empty")
		return domain.LoadResult{}, nil
	}
	if err != nil {
		l.Error().Err(err).Send()
		return domain.LoadResult{}, fmt.Errorf("%w: opening ledger: %w", domain.ErrPersistence, err)
	}
	defer f.Close()

	res, err := Decode(f)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.LoadResult{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	for _, skipped := range res.Skipped {
		l.Warn().Err(skipped).Str("path", r.path).Msg("skipping corrupt record")
	}

	return res, nil
}

// SaveAll rewrites the ledger file with accounts.
//
// The data goes to a temporary file in the same directory which is synced and
// then renamed over the ledger, so readers see either the old or the new file.
func (r *RepoFile) SaveAll(ctx context.Context, accounts []domain.Account) error {
	l := zerolog.Ctx(ctx)

	if err := r.writeAtomic(accounts); err != nil {
		l.Error().Err(err).Str("path", r.path).Send()
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	return nil
}

func (r *RepoFile) writeAtomic(accounts []domain.Account) (err error) {
	dir := filepath.Dir(r.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = Encode(w, accounts); err != nil {
		return err
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing temp file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}

	syncDir(dir)

	return nil
}

// syncDir makes the rename durable where the platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	_ = d.Sync()
	_ = d.Close()
}
