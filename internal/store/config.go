package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimates-cli/internal/config"
)

// NewFromConfig builds the tiered store described by cfg.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Tiered, error) {
	cloud, err := NewCloud(ctx, cfg.Cloud)
	if err != nil {
		return nil, err
	}
	return NewTiered(cloud, NewLocalFS(cfg.LocalDir)), nil
}

// NewCloud returns the remote tier selected by cfg.Driver, or nil when none is.
func NewCloud(ctx context.Context, cfg config.CloudConfig) (Blob, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Driver {
	case "s3":
		return NewS3(S3Options{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Prefix:    cfg.Prefix,
		})
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return NewSQLite(ctx, cfg.DatabaseURL)
	case "ftp":
		return NewFTP(FTPOptions{
			Addr:     cfg.Endpoint,
			Username: cfg.Username,
			Password: cfg.Password,
			Dir:      cfg.Prefix,
		}), nil
	default:
		return nil, eris.Errorf("store: unknown cloud driver %q", cfg.Driver)
	}
}
