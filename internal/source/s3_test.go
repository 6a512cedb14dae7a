package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"

	"apub-go/internal/pub"
)

// fakeS3 serves GetObject from an in-memory bucket map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte // "bucket/key" -> body
	gets    []string
	err     error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.gets = append(f.gets, id)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[id]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func TestS3Source_Open(t *testing.T) {
	t.Parallel()
	client := &fakeS3{objects: map[string][]byte{
		"uploads/incoming/project.zip": []byte("zip from bucket"),
		"other/site.tar.gz":            []byte("tarball"),
	}}

	tests := []struct {
		name     string
		ref      string
		wantGet  string
		wantName string
		wantBody string
	}{
		{"bare key", "project.zip", "uploads/incoming/project.zip", "project.zip", "zip from bucket"},
		{"s3 url", "s3://other/site.tar.gz", "other/site.tar.gz", "site.tar.gz", "tarball"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := NewS3Source(client, "uploads", "incoming", dir, pub.NewNopLogger())

			a, err := src.Open(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if a.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", a.Name, tt.wantName)
			}
			got, err := os.ReadFile(a.Path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.wantBody {
				t.Errorf("content = %q, want %q", got, tt.wantBody)
			}

			a.Close()
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("download dir not cleaned: %v", entries)
			}
		})
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if diff := cmp.Diff([]string{"uploads/incoming/project.zip", "other/site.tar.gz"}, client.gets); diff != "" {
		t.Errorf("GetObject calls mismatch (-want +got):\n%s", diff)
	}
}

func TestS3Source_DownloadFailureRemovesTemp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	client := &fakeS3{err: errors.New("access denied")}
	src := NewS3Source(client, "uploads", "", dir, pub.NewNopLogger())

	if _, err := src.Open(context.Background(), "project.zip"); err == nil {
		t.Fatal("expected download error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestS3Source_Locate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		bucket     string
		ref        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "url", ref: "s3://b/dir/a.zip", wantBucket: "b", wantKey: "dir/a.zip"},
		{name: "bare key", bucket: "b", ref: "a.zip", wantBucket: "b", wantKey: "a.zip"},
		{name: "no bucket", ref: "a.zip", wantErr: true},
		{name: "url without key", ref: "s3://b", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &S3Source{bucket: tt.bucket}
			b, k, err := s.locate(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("locate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, pub.ErrConfigurationMissing) {
					t.Errorf("error = %v, want ErrConfigurationMissing", err)
				}
				return
			}
			if b != tt.wantBucket || k != tt.wantKey {
				t.Errorf("locate() = %q, %q", b, k)
			}
		})
	}
}
