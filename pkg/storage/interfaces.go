package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by Get and Delete for absent keys.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored blob with its response metadata.
type Object struct {
	Body        []byte
	ContentType string
	ETag        string
}

// ObjectInfo describes one listing entry under an owner prefix.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the external blob storage collaborator.
type ObjectStore interface {
	// Put creates or overwrites the object at key. No versioning.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get returns the object at key, or ErrObjectNotFound.
	Get(ctx context.Context, key string) (*Object, error)

	// Delete removes the object at key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// Config holds object store settings.
type Config struct {
	Type string // "s3" or "memory"

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		Type:     "memory",
		S3Region: "us-east-1",
	}
}
