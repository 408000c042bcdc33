package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-prayer-verify/internal/config"
	"github.com/go-prayer-verify/internal/infrastructure/awscfg"
	"github.com/go-prayer-verify/internal/infrastructure/kv"
	s3infra "github.com/go-prayer-verify/internal/infrastructure/s3"
	"github.com/go-prayer-verify/internal/infrastructure/verifyapi"
	"github.com/go-prayer-verify/internal/verification"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs. Fields are built lazily so that
// admin-token works without a reachable API or cache.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	storage verification.Storage
	http    *http.Client
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "verifyctl",
		Short:        "Drive the prayer-request email verification flow",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if a.cfg == nil {
				a.cfg = config.Load()
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newRunCmd(a),
		newStatusCmd(a),
		newResetCmd(a),
		newAdminTokenCmd(a),
	)
	return root
}

// cache opens the configured session storage backend.
func (a *app) cache(ctx context.Context) (*verification.SessionCache, error) {
	if a.storage == nil {
		st, err := openStorage(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.storage = st
	}
	return verification.NewSessionCache(a.storage, verification.WithCacheLogger(a.logger)), nil
}

func (a *app) client() *verifyapi.Client {
	hc := a.http
	if hc == nil {
		hc = &http.Client{}
	}
	return verifyapi.New(a.cfg.APIBaseURL, verifyapi.WithHTTPClient(hc))
}

func openStorage(ctx context.Context, cfg *config.Config) (verification.Storage, error) {
	switch cfg.CacheBackend {
	case "memory":
		return kv.NewMemory(), nil
	case "s3":
		if cfg.CacheS3Bucket == "" {
			return nil, fmt.Errorf("VERIFY_CACHE_S3_BUCKET is required for the s3 cache backend")
		}
		awsCfg, err := awscfg.Load(ctx, cfg, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		client := s3infra.NewClient(awsCfg, cfg.AWSEndpointURL)
		return s3infra.NewStorage(client, cfg.CacheS3Bucket, cfg.CacheS3Prefix), nil
	case "file", "":
		f, err := kv.NewFile(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
