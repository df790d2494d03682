package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gallery-backend/internal/shared/storage/object"
)

type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	lastPut   *s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestPutUsesPrefixedKeyAndPublicURL(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "gallery", "images/", "https://cdn.example.com", "")

	obj, err := store.Put(context.Background(), []byte("jpeg-bytes"), "image/jpeg", "x.jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := aws.ToString(fake.lastPut.Key); got != "images/"+obj.Key {
		t.Fatalf("unexpected s3 key %q", got)
	}
	if got := aws.ToString(fake.lastPut.ContentType); got != "image/jpeg" {
		t.Fatalf("unexpected content type %q", got)
	}
	if fake.lastPut.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 SSE, got %q", fake.lastPut.ServerSideEncryption)
	}
	if obj.URL != "https://cdn.example.com/images/"+obj.Key {
		t.Fatalf("unexpected url %q", obj.URL)
	}

	rc, err := store.Open(context.Background(), obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestPutFailureIsWriteError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := NewWithClient(fake, "gallery", "images", "https://cdn.example.com", "kms-key")

	_, err := store.Put(context.Background(), []byte("x"), "image/png", "a.png")
	if !errors.Is(err, object.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	if fake.lastPut.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms {
		t.Fatalf("expected KMS SSE when key configured")
	}
	if len(fake.objects) != 0 {
		t.Fatalf("expected no stored objects")
	}
}

func TestDeleteByURLIsIdempotent(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "gallery", "images", "https://cdn.example.com", "")

	obj, err := store.Put(context.Background(), []byte("x"), "image/png", "a.png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(context.Background(), obj.URL); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(context.Background(), obj.Key); err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}
	if _, err := store.Open(context.Background(), obj.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTransientFailure(t *testing.T) {
	fake := newFakeS3()
	fake.deleteErr = errors.New("connection reset")
	store := NewWithClient(fake, "gallery", "images", "https://cdn.example.com", "")

	if err := store.Delete(context.Background(), "abc.jpg"); !errors.Is(err, object.ErrDelete) {
		t.Fatalf("expected ErrDelete, got %v", err)
	}
}

func TestDefaultPublicBase(t *testing.T) {
	if got := defaultPublicBase("b", "eu-west-1", ""); got != "https://b.s3.eu-west-1.amazonaws.com" {
		t.Fatalf("unexpected base %q", got)
	}
	if got := defaultPublicBase("b", "", "https://acct.r2.cloudflarestorage.com"); got != "https://acct.r2.cloudflarestorage.com/b" {
		t.Fatalf("unexpected base %q", got)
	}
}
