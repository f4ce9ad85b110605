// Package archive persists discovery run reports outside the primary
// database. Archiving is optional; a nil Archiver disables it.
package archive

import (
	"context"
	"fmt"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/config"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

// New builds the archiver selected by cfg.Backend. The returned close
// function releases client resources and is never nil.
func New(ctx context.Context, cfg config.ArchiveConfig) (discovery.Archiver, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch cfg.Backend {
	case "", "none":
		return nil, noop, nil
	case "mongo":
		a, err := NewMongoArchiver(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, noop, err
		}
		return a, a.Close, nil
	case "minio":
		a, err := NewMinioArchiver(ctx, MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, noop, err
		}
		return a, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown archive backend %q", cfg.Backend)
}
