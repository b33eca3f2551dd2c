package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	cache "github.com/kbase/navcache"
	"github.com/kbase/navcache/config"
	"github.com/kbase/navcache/jsonrpc"
	"github.com/kbase/navcache/narrative"
	"github.com/kbase/navcache/resolver"
	"github.com/kbase/navcache/servicewizard"
	"github.com/kbase/navcache/userprofile"
)

func main() {
	var (
		configPath = flag.String("config", "navigator.yaml", "path to the navigator config file")
		module     = flag.String("module", "NarrativeService", "dynamic service module to resolve")
		version    = flag.String("version", resolver.DefaultVersion, "service version tag")
		profile    = flag.String("profile", "", "also fetch the profile of this user")
		upa        = flag.String("narrative", "", "also fetch the narrative at this ws/obj/ver reference")
		token      = flag.String("token", os.Getenv("KBASE_AUTH_TOKEN"), "auth token for authenticated services")
		timeout    = flag.Duration("timeout", 30*time.Second, "overall timeout")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	if err := run(ctx, logger, *configPath, *module, *version, *profile, *upa, *token); err != nil {
		logger.Error("navresolve failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(ctx context.Context, logger *zap.Logger, configPath, module, version, profile, upa, token string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	locator := servicewizard.NewLocator(cfg.ServiceRoutes.ServiceWizard, servicewizard.WithLogger(logger))
	r := resolver.New(locator, append(cfg.ResolverOptions(), resolver.WithLogger(logger))...)

	url, err := r.Resolve(ctx, resolver.Identity{Module: module, Version: version})
	if err != nil {
		return err
	}
	fmt.Println(url)

	if profile != "" {
		if err := printProfile(ctx, logger, cfg, profile, token); err != nil {
			return err
		}
	}
	if upa != "" {
		return printNarrative(ctx, logger, cfg, upa, profile, token)
	}
	return nil
}

func printProfile(ctx context.Context, logger *zap.Logger, cfg *config.Config, profile, token string) error {
	if cfg.ServiceRoutes.UserProfile == "" {
		return errors.New("no user_profile route configured")
	}
	client := jsonrpc.NewClient(userprofile.Module, cfg.ServiceRoutes.UserProfile,
		jsonrpc.WithToken(token),
		jsonrpc.WithLogger(logger),
	)
	profiles := cache.NewCache(append(
		config.CacheOptions[string, userprofile.Profile](cfg),
		cache.WithLogger[string, userprofile.Profile](logger),
	)...)
	p, err := userprofile.New(client, userprofile.WithCache(profiles)).FetchProfile(ctx, profile)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", p.User.Username, p.User.Realname)
	return nil
}

// printNarrative prints the narrative name and, when username is set, the
// user's permission on its workspace.
func printNarrative(ctx context.Context, logger *zap.Logger, cfg *config.Config, upa, username, token string) error {
	if cfg.ServiceRoutes.Workspace == "" {
		return errors.New("no workspace route configured")
	}
	client := jsonrpc.NewClient(narrative.Module, cfg.ServiceRoutes.Workspace,
		jsonrpc.WithToken(token),
		jsonrpc.WithLogger(logger),
	)
	objects := cache.NewCache(append(
		config.CacheOptions[string, narrative.Object](cfg),
		cache.WithLogger[string, narrative.Object](logger),
	)...)
	m := narrative.New(client, narrative.WithCache(objects))

	obj, err := m.FetchNarrative(ctx, upa)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", upa, obj.Metadata.Name)

	if username == "" {
		return nil
	}
	wsID, err := strconv.Atoi(strings.SplitN(upa, "/", 2)[0])
	if err != nil {
		return fmt.Errorf("narrative reference %q: %w", upa, err)
	}
	perm, err := m.UserPermission(ctx, wsID, username)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", username, perm)
	return nil
}
