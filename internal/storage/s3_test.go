package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte

	headErr error
	getErr  error
	putErr  error

	putKeys         []string
	putContentTypes []string
	listPages       []*s3.ListObjectsV2Output
	deleted         []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(params.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(params.Key)
	f.objects[key] = data
	f.putKeys = append(f.putKeys, key)
	f.putContentTypes = append(f.putContentTypes, aws.ToString(params.ContentType))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if len(f.listPages) == 0 {
		return &s3.ListObjectsV2Output{}, nil
	}
	page := f.listPages[0]
	f.listPages = f.listPages[1:]
	return page, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestExists(t *testing.T) {
	client := newFakeS3()
	client.objects["videos/a.mp4"] = []byte("data")
	gw := NewGateway(client, "test-bucket")

	ok, err := gw.Exists(context.Background(), "videos/a.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gw.Exists(context.Background(), "videos/missing.mp4")
	require.NoError(t, err, "a missing object is not an error")
	assert.False(t, ok)
}

func TestExistsTransportError(t *testing.T) {
	client := newFakeS3()
	client.headErr = errors.New("connection reset")
	gw := NewGateway(client, "test-bucket")

	_, err := gw.Exists(context.Background(), "videos/a.mp4")
	assert.Error(t, err)
}

func TestDownloadWritesFile(t *testing.T) {
	client := newFakeS3()
	client.objects["videos/a.mp4"] = []byte("video-bytes")
	gw := NewGateway(client, "test-bucket")

	dest := filepath.Join(t.TempDir(), "nested", "a.mp4")
	require.NoError(t, gw.Download(context.Background(), "videos/a.mp4", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), data)
}

func TestDownloadMissingObject(t *testing.T) {
	gw := NewGateway(newFakeS3(), "test-bucket")

	dest := filepath.Join(t.TempDir(), "a.mp4")
	err := gw.Download(context.Background(), "videos/missing.mp4", dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial file should remain")
}

func TestUploadSetsContentType(t *testing.T) {
	client := newFakeS3()
	gw := NewGateway(client, "test-bucket")

	src := filepath.Join(t.TempDir(), "frames.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip-bytes"), 0o644))

	require.NoError(t, gw.Upload(context.Background(), "processed/frames.zip", src, "application/zip"))

	assert.Equal(t, []string{"processed/frames.zip"}, client.putKeys)
	assert.Equal(t, []string{"application/zip"}, client.putContentTypes)
	assert.Equal(t, []byte("zip-bytes"), client.objects["processed/frames.zip"])
}

func TestListFollowsPagination(t *testing.T) {
	now := time.Now()
	client := newFakeS3()
	client.listPages = []*s3.ListObjectsV2Output{
		{
			Contents: []types.Object{
				{Key: aws.String("videos/a.mp4"), Size: aws.Int64(10), LastModified: &now},
			},
			NextContinuationToken: aws.String("page-2"),
		},
		{
			Contents: []types.Object{
				{Key: aws.String("videos/b.mp4"), Size: aws.Int64(20)},
			},
		},
	}
	gw := NewGateway(client, "test-bucket")

	objects, err := gw.List(context.Background(), "videos/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "videos/a.mp4", objects[0].Key)
	assert.Equal(t, int64(10), objects[0].Size)
	assert.Equal(t, "videos/b.mp4", objects[1].Key)
}

func TestDelete(t *testing.T) {
	client := newFakeS3()
	client.objects["processed/old.zip"] = []byte("x")
	gw := NewGateway(client, "test-bucket")

	require.NoError(t, gw.Delete(context.Background(), "processed/old.zip"))
	assert.Equal(t, []string{"processed/old.zip"}, client.deleted)
	assert.NotContains(t, client.objects, "processed/old.zip")
}
