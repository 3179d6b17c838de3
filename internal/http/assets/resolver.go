// Package assets resolves logical static asset names to the files actually served.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sync"
)

// Prefix is the URL path under which static assets are served.
const Prefix = "/static/"

// AssetResolver resolves logical asset names to hashed filenames using manifest.json.
// Names missing from the manifest resolve to themselves.
type AssetResolver struct {
	mu       sync.RWMutex
	manifest map[string]string
	fsys     fs.FS
	name     string
}

// NewAssetResolverFromFS reads the manifest from fsys. A missing manifest is not an error.
func NewAssetResolverFromFS(fsys fs.FS, manifestPath string) (*AssetResolver, error) {
	ar := &AssetResolver{manifest: make(map[string]string), fsys: fsys, name: manifestPath}
	return ar, ar.Reload()
}

// Reload re-reads the manifest.
func (ar *AssetResolver) Reload() error {
	if ar.fsys == nil || ar.name == "" {
		return nil
	}
	data, err := fs.ReadFile(ar.fsys, ar.name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ar.set(map[string]string{})
			return nil
		}
		return fmt.Errorf("read asset manifest: %w", err)
	}

	manifest := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("parse asset manifest %s: %w", ar.name, err)
		}
	}
	ar.set(manifest)
	return nil
}

func (ar *AssetResolver) set(m map[string]string) {
	ar.mu.Lock()
	ar.manifest = m
	ar.mu.Unlock()
}

// Resolve returns the served URL path for a logical asset name.
func (ar *AssetResolver) Resolve(logicalName string) string {
	if ar == nil {
		return path.Join(Prefix, logicalName)
	}
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	if hashed, ok := ar.manifest[logicalName]; ok {
		return path.Join(Prefix, hashed)
	}
	return path.Join(Prefix, logicalName)
}
