// Package mover orchestrates artifact uploads to release storage: it
// derives manifest template arguments from a task, maps artifact keys to
// candidate/release destinations, and pushes files through an Uploader.
package mover

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matgreaves/shipworker/publish"
)

// Cloud identifies which storage backend a resource lives on.
type Cloud string

const (
	CloudAWS    Cloud = "aws"
	CloudGCloud Cloud = "gcloud"
)

// Config is the mover's static per-deployment configuration: one
// Resource per bucket nickname the worker is scoped to.
type Config struct {
	Resources map[string]Resource `yaml:"resources"`

	// ReleaseExcludes are anchored patterns for candidate keys that never
	// promote to the release prefixes.
	ReleaseExcludes []string `yaml:"release_excludes"`
}

// Resource describes one storage bucket and its credentials.
type Resource struct {
	// URLPrefix is the public download prefix backed by this bucket.
	URLPrefix string `yaml:"url_prefix"`

	// Bucket is the storage bucket name, shared by both clouds.
	Bucket string `yaml:"bucket"`

	AWS *AWSCredentials `yaml:"aws"`

	// GCloud is a base64-encoded service account document. Empty means
	// this resource is not replicated to GCS.
	GCloud string `yaml:"gcloud"`
}

// AWSCredentials is a static S3 key pair.
type AWSCredentials struct {
	ID  string `yaml:"id"`
	Key string `yaml:"key"`
}

// LoadConfig reads the mover configuration document.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("mover config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("mover config %s: %w", path, err)
	}
	return cfg, nil
}

// Credentials is the credential material for one resource on one cloud.
// Exactly one field is set; both empty means the resource is not
// replicated to the requested cloud.
type Credentials struct {
	AWS *AWSCredentials

	// GCloud is a base64-encoded service account document.
	GCloud string
}

// Credentials returns the credential material for a resource on the
// given cloud. Unrecognized clouds fail with the unsupported-target
// error kind; a resource that simply is not replicated to the cloud
// yields empty credentials and no error.
func (c Config) Credentials(resource string, cloud Cloud) (Credentials, error) {
	res, ok := c.Resources[resource]
	if !ok {
		return Credentials{}, fmt.Errorf("unknown resource %q", resource)
	}
	switch cloud {
	case CloudAWS:
		return Credentials{AWS: res.AWS}, nil
	case CloudGCloud:
		return Credentials{GCloud: res.GCloud}, nil
	default:
		return Credentials{}, &publish.TargetError{Target: string(cloud)}
	}
}

// URLPrefix returns the public download prefix for a resource.
func (c Config) URLPrefix(resource string) (string, error) {
	res, ok := c.Resources[resource]
	if !ok || res.URLPrefix == "" {
		return "", fmt.Errorf("no url prefix configured for resource %q", resource)
	}
	return res.URLPrefix, nil
}
