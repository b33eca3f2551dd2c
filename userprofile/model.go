package userprofile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	cache "github.com/kbase/navcache"
	"github.com/kbase/navcache/jsonrpc"
)

const Module = "UserProfile"

var ErrProfileNotFound = errors.New("user profile not found")

type User struct {
	Username string `json:"username"`
	Realname string `json:"realname"`
}

type Profile struct {
	User    User `json:"user"`
	Profile struct {
		Synced struct {
			GravatarHash string `json:"gravatarHash"`
		} `json:"synced"`
		Userdata struct {
			AvatarOption    string `json:"avatarOption"`
			GravatarDefault string `json:"gravatarDefault"`
		} `json:"userdata"`
	} `json:"profile"`
}

type Option func(m *Model)

// WithCache replaces the default profile cache, e.g. to share one between
// models or tune its ttl.
func WithCache(c cache.Cache[string, Profile]) Option {
	return func(m *Model) {
		if c == nil {
			return
		}
		m.cache = c
	}
}

// Model fetches user profiles, remembering them for the cache ttl.
type Model struct {
	caller jsonrpc.Caller
	cache  cache.Cache[string, Profile]
}

// New returns a Model calling the UserProfile service through caller,
// typically a jsonrpc.Client for the user_profile route.
func New(caller jsonrpc.Caller, opts ...Option) *Model {
	m := &Model{caller: caller}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = cache.NewCache[string, Profile]()
	}
	return m
}

func (m *Model) ClearCache() {
	m.cache.Clear()
}

// FetchProfiles returns the profiles of usernames in the same order.
// Uncached users are fetched in a single call.
func (m *Model) FetchProfiles(ctx context.Context, usernames []string) ([]Profile, error) {
	known := make(map[string]Profile, len(usernames))
	var missing []string
	for _, username := range usernames {
		if _, seen := known[username]; seen {
			continue
		}
		if m.cache.Has(username) {
			// Has may be followed by an expiry, so Get can still miss.
			if p, err := m.cache.Get(username); err == nil {
				known[username] = p
				continue
			}
		}
		if !slices.Contains(missing, username) {
			missing = append(missing, username)
		}
	}

	if len(missing) > 0 {
		var result []*Profile
		if err := m.caller.Call(ctx, "get_user_profile", []any{missing}, &result); err != nil {
			return nil, fmt.Errorf("fetch user profiles: %w", err)
		}
		if len(result) != len(missing) {
			return nil, fmt.Errorf("fetch user profiles: asked for %d, got %d", len(missing), len(result))
		}
		for i, p := range result {
			if p == nil {
				return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, missing[i])
			}
			known[missing[i]] = *p
			m.cache.Set(missing[i], *p)
		}
	}

	profiles := make([]Profile, len(usernames))
	for i, username := range usernames {
		profiles[i] = known[username]
	}
	return profiles, nil
}

func (m *Model) FetchProfile(ctx context.Context, username string) (Profile, error) {
	profiles, err := m.FetchProfiles(ctx, []string{username})
	if err != nil {
		return Profile{}, err
	}
	return profiles[0], nil
}
