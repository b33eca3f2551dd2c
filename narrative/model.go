// Package narrative reads Narrative documents and permissions from the
// Workspace service.
package narrative

import (
	"context"
	"errors"
	"fmt"

	cache "github.com/kbase/navcache"
	"github.com/kbase/navcache/jsonrpc"
)

const Module = "Workspace"

var ErrObjectNotFound = errors.New("narrative object not found")

type Permission string

const (
	PermissionAdmin Permission = "a"
	PermissionWrite Permission = "w"
	PermissionRead  Permission = "r"
	PermissionNone  Permission = "n"
)

type Cell struct {
	CellType string         `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
}

type Metadata struct {
	Description      string   `json:"description"`
	DataDependencies []string `json:"data_dependencies"`
	Creator          string   `json:"creator"`
	Format           string   `json:"format"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	WsName           string   `json:"ws_name"`
}

// Object is the notebook stored as a Narrative's workspace object.
type Object struct {
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
	Cells         []Cell   `json:"cells"`
	Metadata      Metadata `json:"metadata"`
}

type Option func(m *Model)

// WithCache replaces the default object cache.
func WithCache(c cache.Cache[string, Object]) Option {
	return func(m *Model) {
		if c == nil {
			return
		}
		m.cache = c
	}
}

// Model fetches Narrative objects by upa, remembering them for the cache ttl.
// Permissions are always asked for fresh.
type Model struct {
	caller jsonrpc.Caller
	cache  cache.Cache[string, Object]
}

// New returns a Model calling the Workspace through caller, typically a
// jsonrpc.Client for the workspace route.
func New(caller jsonrpc.Caller, opts ...Option) *Model {
	m := &Model{caller: caller}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = cache.NewCache[string, Object]()
	}
	return m
}

func (m *Model) ClearCache() {
	m.cache.Clear()
}

type objectSpec struct {
	Ref string `json:"ref"`
}

type getObjectsParams struct {
	Objects []objectSpec `json:"objects"`
}

type getObjectsResult struct {
	Data []struct {
		Data Object `json:"data"`
	} `json:"data"`
}

// FetchNarrative returns the Narrative object at upa, a
// "workspace/object/version" reference.
func (m *Model) FetchNarrative(ctx context.Context, upa string) (Object, error) {
	if obj, found := m.cache.GetIfPresent(upa); found {
		return obj, nil
	}

	var result getObjectsResult
	params := getObjectsParams{Objects: []objectSpec{{Ref: upa}}}
	if err := m.caller.Call(ctx, "get_objects2", []any{params}, &result); err != nil {
		return Object{}, fmt.Errorf("fetch narrative %s: %w", upa, err)
	}
	if len(result.Data) == 0 {
		return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, upa)
	}

	obj := result.Data[0].Data
	m.cache.Set(upa, obj)
	return obj, nil
}

type workspaceIdentity struct {
	ID int `json:"id"`
}

type getPermissionsParams struct {
	Workspaces []workspaceIdentity `json:"workspaces"`
}

type getPermissionsResult struct {
	Perms []map[string]Permission `json:"perms"`
}

// UserPermission returns the permission username holds on workspace wsID.
// A user missing from the workspace's permissions gets PermissionNone.
func (m *Model) UserPermission(ctx context.Context, wsID int, username string) (Permission, error) {
	var result getPermissionsResult
	params := getPermissionsParams{Workspaces: []workspaceIdentity{{ID: wsID}}}
	if err := m.caller.Call(ctx, "get_permissions_mass", []any{params}, &result); err != nil {
		return PermissionNone, fmt.Errorf("workspace %d permissions: %w", wsID, err)
	}
	if len(result.Perms) == 0 {
		return PermissionNone, nil
	}
	if p, ok := result.Perms[0][username]; ok && p != "" {
		return p, nil
	}
	return PermissionNone, nil
}
