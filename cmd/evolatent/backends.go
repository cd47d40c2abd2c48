package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/evolatent"
	"github.com/hupe1980/evolatent/blobstore"
	"github.com/hupe1980/evolatent/blobstore/minio"
	"github.com/hupe1980/evolatent/blobstore/s3"
	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/mutation"
	"github.com/hupe1980/evolatent/render"
	"github.com/hupe1980/evolatent/render/httprender"
	"github.com/hupe1980/evolatent/store"
)

func openBlobs(ctx context.Context, cfg BlobConfig) (blobstore.BlobStore, error) {
	switch cfg.Driver {
	case "fs":
		return blobstore.NewLocalStore(cfg.Root), nil
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		return s3.New(ctx, cfg.S3.Bucket,
			s3.WithPrefix(cfg.S3.Prefix),
			s3.WithRegion(cfg.S3.Region),
			s3.WithEndpoint(cfg.S3.Endpoint),
		)
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Prefix:    cfg.MinIO.Prefix,
			Secure:    cfg.MinIO.Secure,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

func storeOptions(cfg BlobConfig) ([]store.Option, error) {
	c, err := latent.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return []store.Option{
		store.WithCompression(c),
		store.WithMaxParallelWrites(cfg.MaxParallelWrites),
		store.WithIOLimit(cfg.IOLimit),
	}, nil
}

func newRenderer(cfg Config) render.Renderer {
	if cfg.Renderer.Driver == "http" {
		return httprender.New(cfg.Renderer.Endpoint,
			httprender.WithTimeout(cfg.Renderer.Timeout),
			httprender.WithRateLimit(cfg.Renderer.RateLimit, cfg.Renderer.Burst),
		)
	}
	return render.NewPreviewRenderer(cfg.Session.ImageWidth, cfg.Session.ImageHeight)
}

func sessionOptions(cfg Config, logger *evolatent.Logger, mc evolatent.MetricsCollector) ([]evolatent.Option, error) {
	policy, err := mutation.ParseDecayPolicy(cfg.Session.Decay)
	if err != nil {
		return nil, err
	}
	opts := []evolatent.Option{
		evolatent.WithPopulationSize(cfg.Session.PopulationSize),
		evolatent.WithImageSize(cfg.Session.ImageWidth, cfg.Session.ImageHeight),
		evolatent.WithInitialMutationRate(cfg.Session.MutationRate),
		evolatent.WithDecay(policy, cfg.Session.DecayFactor),
		evolatent.WithLogger(logger),
		evolatent.WithMetricsCollector(mc),
	}
	if cfg.Session.Seed != 0 {
		opts = append(opts, evolatent.WithSeed(cfg.Session.Seed))
	}
	return opts, nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
