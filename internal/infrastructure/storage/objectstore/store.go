// Package objectstore keeps records in an S3-compatible bucket, one object
// per record under a prefix per category.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/infrastructure/resilience"
)

const recordExt = ".json"

type objectClient interface {
	put(ctx context.Context, key string, data []byte, meta map[string]string) error
	get(ctx context.Context, key string) ([]byte, error)
	exists(ctx context.Context, key string) (bool, error)
	remove(ctx context.Context, key string) error
	list(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
}

type Store struct {
	client   objectClient
	prefix   string
	executor *resilience.Executor
}

func newStore(client objectClient, prefix string, executor *resilience.Executor) *Store {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Store{
		client:   client,
		prefix:   strings.Trim(prefix, "/"),
		executor: executor,
	}
}

func (s *Store) Name() string {
	return "minio"
}

// Put relies on S3 single-object PUT atomicity.
func (s *Store) Put(ctx context.Context, category domain.Category, id string, data []byte) error {
	key, err := s.key(category, id)
	if err != nil {
		return err
	}
	meta := map[string]string{"category": string(category), "storage-id": id}
	err = s.executor.Execute(ctx, "minio.put", func(callCtx context.Context) error {
		return s.client.put(callCtx, key, data, meta)
	}, classifyMinioError)
	return wrap("minio put", err)
}

func (s *Store) Get(ctx context.Context, category domain.Category, id string) ([]byte, error) {
	key, err := s.key(category, id)
	if err != nil {
		return nil, err
	}
	raw, err := resilience.Do(ctx, s.executor, "minio.get", func(callCtx context.Context) ([]byte, error) {
		return s.client.get(callCtx, key)
	}, classifyMinioError)
	if err != nil {
		return nil, wrap("minio get", err)
	}
	return raw, nil
}

// Delete checks existence first because S3 removal of a missing key succeeds.
func (s *Store) Delete(ctx context.Context, category domain.Category, id string) error {
	key, err := s.key(category, id)
	if err != nil {
		return err
	}
	found, err := resilience.Do(ctx, s.executor, "minio.stat", func(callCtx context.Context) (bool, error) {
		return s.client.exists(callCtx, key)
	}, classifyMinioError)
	if err != nil {
		return wrap("minio stat", err)
	}
	if !found {
		return domain.WrapError(domain.ErrRecordNotFound, "minio delete", fmt.Errorf("key %s", key))
	}
	err = s.executor.Execute(ctx, "minio.remove", func(callCtx context.Context) error {
		return s.client.remove(callCtx, key)
	}, classifyMinioError)
	return wrap("minio remove", err)
}

func (s *Store) List(ctx context.Context, category domain.Category) ([]domain.ObjectInfo, error) {
	prefix := s.categoryPrefix(category)
	objects, err := resilience.Do(ctx, s.executor, "minio.list", func(callCtx context.Context) ([]domain.ObjectInfo, error) {
		return s.client.list(callCtx, prefix)
	}, classifyMinioError)
	if err != nil {
		return nil, wrap("minio list", err)
	}

	out := make([]domain.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.ID, prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		out = append(out, domain.ObjectInfo{ID: strings.TrimSuffix(name, recordExt), SizeBytes: obj.SizeBytes})
	}
	return out, nil
}

func (s *Store) categoryPrefix(category domain.Category) string {
	return path.Join(s.prefix, string(category)) + "/"
}

func (s *Store) key(category domain.Category, id string) (string, error) {
	if !category.Storable() {
		return "", domain.WrapError(domain.ErrInvalidInput, "object key", fmt.Errorf("category %q", category))
	}
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return "", domain.WrapError(domain.ErrInvalidInput, "object key", fmt.Errorf("storage id %q", id))
	}
	return s.categoryPrefix(category) + id + recordExt, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func classifyMinioError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if isNotFound(err) {
		return resilience.ErrorClassification{}
	}
	if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 {
		return resilience.ClassifyHTTPStatus(resp.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return domain.WrapError(domain.ErrRecordNotFound, operation, err)
	}
	class := classifyMinioError(err)
	if class.Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
