package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// BlobConfig configures the S3-compatible store that holds recorded audio
// turns. The defaults target a local MinIO instance; in production the
// endpoint can be left empty to use the AWS default resolver.
type BlobConfig struct {
	Endpoint  string        `mapstructure:"endpoint" json:"endpoint"` // empty means AWS default
	Region    string        `mapstructure:"region" json:"region"`
	Bucket    string        `mapstructure:"bucket" json:"bucket"`
	AccessKey string        `mapstructure:"access_key" json:"access_key"`
	SecretKey string        `mapstructure:"secret_key" json:"secret_key"` // SENSITIVE: masked in MarshalJSON
	URLExpiry time.Duration `mapstructure:"url_expiry" json:"url_expiry"` // presigned GET lifetime

	// MinIO requires path-style addressing; AWS prefers virtual-hosted.
	UsePathStyle bool `mapstructure:"use_path_style" json:"use_path_style"`
}

// MarshalJSON masks the secret key.
func (b BlobConfig) MarshalJSON() ([]byte, error) {
	type alias BlobConfig
	a := alias(b)
	a.SecretKey = maskSecret(a.SecretKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal blob config: %w", err)
	}
	return data, nil
}
