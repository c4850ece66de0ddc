package service_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/simholt/hyrax/pkg/internal/storage/kv"
	"github.com/simholt/hyrax/pkg/internal/storage/s3"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
)

// recordingWriter 记录每次 Add 调用.
type recordingWriter struct {
	mu      sync.Mutex
	batches [][]search.Document
	commits int
	err     error
}

func (w *recordingWriter) Add(_ context.Context, docs []search.Document, commit bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	if len(docs) > 0 {
		w.batches = append(w.batches, docs)
	}

	if commit {
		w.commits++
	}

	return nil
}

func (w *recordingWriter) docs() []search.Document {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []search.Document
	for _, b := range w.batches {
		out = append(out, b...)
	}

	return out
}

// memObjects 内存对象存储.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	// failUploadAt 大于 0 时第 n 次 UploadFile 返回 err
	failUploadAt int
	uploads      int
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) UploadFile(_ context.Context, bucket, key, path, _ string) (s3.ObjectInfo, error) {
	m.mu.Lock()
	m.uploads++
	failNow := m.failUploadAt > 0 && m.uploads == m.failUploadAt
	m.mu.Unlock()

	if failNow {
		return s3.ObjectInfo{}, errObjectsDown
	}

	if m.err != nil {
		return s3.ObjectInfo{}, m.err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return s3.ObjectInfo{}, err
	}

	return m.put(bucket, key, b), nil
}

func (m *memObjects) PutBytes(_ context.Context, bucket, key string, data []byte, _ string) (s3.ObjectInfo, error) {
	if m.err != nil {
		return s3.ObjectInfo{}, m.err
	}

	return m.put(bucket, key, data), nil
}

func (m *memObjects) put(bucket, key string, data []byte) s3.ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[bucket+"/"+key] = append([]byte(nil), data...)

	return s3.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(data)), ETag: "etag-" + key}
}

func (m *memObjects) RemoveObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, bucket+"/"+key)

	return nil
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.objects)
}

func (m *memObjects) get(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.objects[bucket+"/"+key]

	return b, ok
}

// capturePublisher 记录发布的消息.
type capturePublisher struct {
	mu   sync.Mutex
	msgs map[string][]*message.Message
	err  error
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{msgs: map[string][]*message.Message{}}
}

func (p *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.err != nil {
		return p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs[topic] = append(p.msgs[topic], msgs...)

	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.msgs[topic]
}

var (
	errKVDown      = errors.New("kv down")
	errObjectsDown = errors.New("s3 down")
)

// brokenKV 所有操作都失败.
type brokenKV struct{}

var _ kv.KVStore = brokenKV{}

func (brokenKV) Get(context.Context, string) ([]byte, error)              { return nil, errKVDown }
func (brokenKV) Set(context.Context, string, []byte, time.Duration) error { return errKVDown }
func (brokenKV) Delete(context.Context, string) error                     { return errKVDown }
func (brokenKV) Exists(context.Context, string) (bool, error)             { return false, errKVDown }
func (brokenKV) Keys(context.Context, string) ([]string, error)           { return nil, errKVDown }
func (brokenKV) Close() error                                             { return nil }
