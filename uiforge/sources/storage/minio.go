package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"uiforge/uiforge/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Snapshot is the archived copy of one component version.
type Snapshot struct {
	ComponentID  uuid.UUID              `json:"componentId"`
	SessionID    uuid.UUID              `json:"sessionId"`
	Version      int                    `json:"version"`
	Name         string                 `json:"name"`
	JSX          string                 `json:"jsx"`
	CSS          string                 `json:"css"`
	Props        map[string]interface{} `json:"props"`
	Dependencies []string               `json:"dependencies"`
	Model        string                 `json:"model"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// ComponentArchive stores immutable component snapshots outside the database.
type ComponentArchive interface {
	PutSnapshot(ctx context.Context, s Snapshot) (string, error)
	GetSnapshot(ctx context.Context, key string) (*Snapshot, error)
}

func SnapshotKey(sessionID uuid.UUID, version int) string {
	return path.Join("components", sessionID.String(), fmt.Sprintf("v%d.json", version))
}

type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	// Create bucket if not exists
	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinIOBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinIOBucket, err)
		}
	}
	return &MinIOClient{client: client, bucket: cfg.MinIOBucket}, nil
}

func (m *MinIOClient) PutSnapshot(ctx context.Context, s Snapshot) (string, error) {
	key := SnapshotKey(s.SessionID, s.Version)
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (m *MinIOClient) GetSnapshot(ctx context.Context, key string) (*Snapshot, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MemoryArchive keeps snapshots in process. Used by tests and the CLI.
type MemoryArchive struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{items: make(map[string][]byte)}
}

func (a *MemoryArchive) PutSnapshot(_ context.Context, s Snapshot) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	key := SnapshotKey(s.SessionID, s.Version)
	a.mu.Lock()
	a.items[key] = data
	a.mu.Unlock()
	return key, nil
}

func (a *MemoryArchive) GetSnapshot(_ context.Context, key string) (*Snapshot, error) {
	a.mu.RLock()
	data, ok := a.items[key]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("snapshot %s not found", key)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}
