package local

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ssuji15/rvsim/internal/storage"
	"github.com/ssuji15/rvsim/internal/util"
)

// DirStore keeps result.json inside each submission's working area.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := util.EnsureDirExist(root); err != nil {
		return nil, err
	}
	return &DirStore{root: root}, nil
}

func (d *DirStore) PutResult(ctx context.Context, id string, data []byte) error {
	err := util.WriteFileOnce(util.GetResultPath(d.root, id), data)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", id, storage.ErrAlreadyExists)
	}
	return err
}

func (d *DirStore) GetResult(ctx context.Context, id string) ([]byte, error) {
	b, err := os.ReadFile(util.GetResultPath(d.root, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read result %s: %w", id, err)
	}
	return b, nil
}

func (d *DirStore) ShutDown(ctx context.Context) {}
