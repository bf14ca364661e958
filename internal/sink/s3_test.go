package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 stores objects of a single bucket in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	modified := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(modified),
		})
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

var errMultipart = errors.New("multipart upload not supported by fake")

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Sink(t *testing.T) {
	client := newFakeS3()
	s := NewS3Sink(client, "mirror-bucket", "/json/")

	if err := s.WriteArtifact("employees.json", []byte(`[{"id": 1}]`)); err != nil {
		t.Fatalf("WriteArtifact() error = %v", err)
	}
	if _, ok := client.objects["json/employees.json"]; !ok {
		t.Fatalf("object keys = %v, want json/employees.json", client.objects)
	}
	if ct := client.types["json/employees.json"]; ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	got, err := s.ReadArtifact("employees.json")
	if err != nil {
		t.Fatalf("ReadArtifact() error = %v", err)
	}
	if string(got) != `[{"id": 1}]` {
		t.Errorf("ReadArtifact() = %q", got)
	}

	missing, err := s.ReadArtifact("nope.json")
	if err != nil || missing != nil {
		t.Errorf("ReadArtifact(missing) = %q, %v; want nil, nil", missing, err)
	}

	s.WriteArtifact("employees_history_20240115_103000.json", []byte("h"))
	client.objects["json/nested/other.json"] = []byte("x")

	list, err := s.ListArtifacts("employees")
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "employees.json" || list[1].Name != "employees_history_20240115_103000.json" {
		t.Errorf("ListArtifacts() = %+v", list)
	}
	all, _ := s.ListArtifacts("")
	for _, a := range all {
		if strings.Contains(a.Name, "/") {
			t.Errorf("nested key listed: %q", a.Name)
		}
	}

	if err := s.RemoveArtifact("employees.json"); err != nil {
		t.Fatalf("RemoveArtifact() error = %v", err)
	}
	if _, ok := client.objects["json/employees.json"]; ok {
		t.Error("object still present after RemoveArtifact")
	}
}
