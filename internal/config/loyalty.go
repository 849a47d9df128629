package config

import (
	"fmt"
	"time"
)

const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendMongoDB = "mongodb"
	BackendFile    = "file"
	BackendS3      = "s3"
	BackendGCS     = "gcs"
)

// LoyaltyConfig selects the engine's backends. Each user's coupons live in
// one in-process session that rewrites the whole stored list, so a user must
// be served by a single replica at a time (route on X-User-ID). Only the
// redis points ledger is safe across replicas.
type LoyaltyConfig struct {
	// CatalogPath points at a YAML catalog. Empty uses the built-in catalog.
	CatalogPath      string            `yaml:"catalog_path"`
	StorageBackend   string            `yaml:"storage_backend"`
	LedgerBackend    string            `yaml:"ledger_backend"`
	CouponsKeyPrefix string            `yaml:"coupons_key_prefix"`
	TierKeyPrefix    string            `yaml:"tier_key_prefix"`
	FavoritesKey     string            `yaml:"favorites_key"`
	StorageTimeout   time.Duration     `yaml:"storage_timeout"`
	BlobTTL          time.Duration     `yaml:"blob_ttl"`
	RunMigrations    bool              `yaml:"run_migrations"`
	Objects          ObjectStoreConfig `yaml:"objects"`
}

// ObjectStoreConfig configures the file, s3 and gcs storage backends.
type ObjectStoreConfig struct {
	Prefix          string `yaml:"prefix"`
	LocalPath       string `yaml:"local_path"`
	S3Region        string `yaml:"s3_region"`
	S3Bucket        string `yaml:"s3_bucket"`
	GCSBucket       string `yaml:"gcs_bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

func loadLoyaltyConfig() *LoyaltyConfig {
	return &LoyaltyConfig{
		CatalogPath:      getEnv("LOYALTY_CATALOG_PATH", ""),
		StorageBackend:   getEnv("LOYALTY_STORAGE_BACKEND", BackendMemory),
		LedgerBackend:    getEnv("LOYALTY_LEDGER_BACKEND", BackendMemory),
		CouponsKeyPrefix: getEnv("LOYALTY_COUPONS_KEY_PREFIX", "user_coupons"),
		TierKeyPrefix:    getEnv("LOYALTY_TIER_KEY_PREFIX", "user_last_tier"),
		FavoritesKey:     getEnv("LOYALTY_FAVORITES_KEY", "favorite_coupons"),
		StorageTimeout:   getEnvAsDuration("LOYALTY_STORAGE_TIMEOUT", 2*time.Second),
		BlobTTL:          getEnvAsDuration("LOYALTY_BLOB_TTL", 0),
		RunMigrations:    getEnvAsBool("LOYALTY_RUN_MIGRATIONS", true),
		Objects: ObjectStoreConfig{
			Prefix:          getEnv("LOYALTY_OBJECT_PREFIX", "vipclub"),
			LocalPath:       getEnv("LOYALTY_OBJECT_LOCAL_PATH", "./data"),
			S3Region:        getEnv("AWS_REGION", "us-east-1"),
			S3Bucket:        getEnv("LOYALTY_S3_BUCKET", ""),
			GCSBucket:       getEnv("LOYALTY_GCS_BUCKET", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
	}
}

// Validate rejects unknown backends and bucket backends without a bucket. The ledger has no mongodb implementation.
func (c *LoyaltyConfig) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendRedis, BackendMongoDB, BackendFile:
	case BackendS3:
		if c.Objects.S3Bucket == "" {
			return fmt.Errorf("s3 storage backend requires LOYALTY_S3_BUCKET")
		}
	case BackendGCS:
		if c.Objects.GCSBucket == "" {
			return fmt.Errorf("gcs storage backend requires LOYALTY_GCS_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.StorageBackend)
	}
	switch c.LedgerBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported ledger backend %q", c.LedgerBackend)
	}
	if c.StorageTimeout < 0 {
		return fmt.Errorf("storage timeout must not be negative")
	}
	return nil
}

func (c *LoyaltyConfig) UsesRedis() bool {
	return c.StorageBackend == BackendRedis || c.LedgerBackend == BackendRedis
}
