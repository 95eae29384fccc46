package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-vrlobby/internal/identity"
	"github.com/pixil98/go-vrlobby/internal/storage"
)

type StorageConfig struct {
	Profiles AssetConfig[*identity.Profile]        `json:"profiles"`
	Tokens   AssetConfig[*identity.AnonymousToken] `json:"tokens"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Profiles.Validate("profiles"))
	el.Add(c.Tokens.Validate("tokens"))
	return el.Err()
}

// BuildIdentityStore opens both asset directories and loads the local profile.
func (c *StorageConfig) BuildIdentityStore(sink identity.PropertySink) (*identity.Store, error) {
	profiles, err := c.Profiles.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating profile store: %w", err)
	}
	tokens, err := c.Tokens.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating token store: %w", err)
	}
	return identity.NewStore(profiles, tokens, sink), nil
}

// AssetConfig points at a directory of stored assets. A missing directory is created on
// first use.
type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	fi, err := os.Stat(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s: path %q is not a directory", name, c.Path)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
