package objectstore

import (
	"fmt"
	"strings"
)

// Config selects and configures a Store.
type Config struct {
	// Endpoint is either host[:port] of an S3-compatible service or a
	// file:// URL for a local directory.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New returns the Store described by cfg.
func New(cfg Config) (Store, error) {
	if root, ok := strings.CutPrefix(cfg.Endpoint, "file://"); ok {
		if root == "" {
			return nil, fmt.Errorf("objectstore: empty directory in %q", cfg.Endpoint)
		}
		return Dir{Root: root}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("objectstore: storage.endpoint is not set")
	}
	return NewMinio(MinioConfig{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
	})
}
