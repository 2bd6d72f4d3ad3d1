package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

type memObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Put(_ context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := bucket + "/" + key
	if _, ok := m.objects[id]; ok {
		return fmt.Errorf("objectstore: %s: %w", id, domain.ErrConflict)
	}
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	m.objects[id] = memObject{
		body:        bytes.Clone(body),
		contentType: contentType,
		metadata:    meta,
		modified:    time.Now().UTC(),
	}
	return nil
}

func (m *Memory) List(_ context.Context, bucket, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Object
	for id, obj := range m.objects {
		key, ok := strings.CutPrefix(id, bucket+"/")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, Object{Key: key, Size: int64(len(obj.body)), LastModified: obj.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("objectstore: %s/%s: %w", bucket, key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

// Metadata returns the content type and metadata stored with an object.
func (m *Memory) Metadata(bucket, key string) (string, map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	return obj.contentType, obj.metadata, ok
}
