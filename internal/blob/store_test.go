package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise/internal/log"
)

type fakeS3 struct {
	headErr   error
	createErr error
	putErr    error
	deleteErr error

	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectsInput
	created int
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, _ *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deletes = append(f.deletes, params)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectsOutput{}, nil
}

type fakePresigner struct {
	url string
	err error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	url := f.url
	if url == "" {
		url = "https://blobs.example.com/" + aws.ToString(params.Key) + "?signed=yes"
	}
	return &v4.PresignedHTTPRequest{URL: url, Method: "GET"}, nil
}

func testStore(api objectAPI, presign presignAPI) *Store {
	return &Store{
		client:  api,
		presign: presign,
		bucket:  "prepwise-audio",
		expiry:  15 * time.Minute,
		logger:  log.NewNop(),
	}
}

func TestAudioKeyFormat(t *testing.T) {
	key := AudioKey("sess-1")
	assert.True(t, strings.HasPrefix(key, "audio/sess-1/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, ".wav"), "key %q", key)
	assert.NotEqual(t, key, AudioKey("sess-1"), "keys must be unique per turn")
}

func TestPutAudio(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api, &fakePresigner{})

	key, err := store.PutAudio(context.Background(), "sess-1", []byte("RIFF....WAVE"), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "audio/sess-1/"))

	require.Len(t, api.puts, 1)
	put := api.puts[0]
	assert.Equal(t, "prepwise-audio", aws.ToString(put.Bucket))
	assert.Equal(t, key, aws.ToString(put.Key))
	assert.Equal(t, "audio/wav", aws.ToString(put.ContentType))

	body, err := io.ReadAll(put.Body)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....WAVE", string(body))
}

func TestPutAudioEmptyData(t *testing.T) {
	store := testStore(&fakeS3{}, &fakePresigner{})
	_, err := store.PutAudio(context.Background(), "sess-1", nil, "audio/wav")
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestPutAudioUploadError(t *testing.T) {
	api := &fakeS3{putErr: errors.New("boom")}
	store := testStore(api, &fakePresigner{})
	_, err := store.PutAudio(context.Background(), "sess-1", []byte("x"), "audio/wav")
	assert.Error(t, err)
}

func TestAudioURL(t *testing.T) {
	store := testStore(&fakeS3{}, &fakePresigner{})

	before := time.Now()
	url, expiresAt, err := store.AudioURL(context.Background(), "audio/sess-1/x.wav")
	require.NoError(t, err)
	assert.Contains(t, url, "audio/sess-1/x.wav")
	assert.True(t, expiresAt.After(before.Add(14*time.Minute)), "expiry %s", expiresAt)
}

func TestAudioURLEmptyKey(t *testing.T) {
	store := testStore(&fakeS3{}, &fakePresigner{})
	_, _, err := store.AudioURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestRemove(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api, &fakePresigner{})

	keys := []string{"audio/s/1.wav", "audio/s/2.wav"}
	require.NoError(t, store.Remove(context.Background(), keys))

	require.Len(t, api.deletes, 1)
	objects := api.deletes[0].Delete.Objects
	require.Len(t, objects, 2)
	assert.Equal(t, "audio/s/1.wav", aws.ToString(objects[0].Key))
}

func TestRemoveNoKeys(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api, &fakePresigner{})
	require.NoError(t, store.Remove(context.Background(), nil))
	assert.Empty(t, api.deletes)
}

func TestRemoveBatches(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api, &fakePresigner{})

	keys := make([]string, 1500)
	for i := range keys {
		keys[i] = AudioKey("big")
	}
	require.NoError(t, store.Remove(context.Background(), keys))

	require.Len(t, api.deletes, 2)
	assert.Len(t, api.deletes[0].Delete.Objects, 1000)
	assert.Len(t, api.deletes[1].Delete.Objects, 500)
}

func TestEnsureBucketExisting(t *testing.T) {
	api := &fakeS3{}
	store := testStore(api, &fakePresigner{})
	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.Zero(t, api.created)
}

func TestEnsureBucketCreatesMissing(t *testing.T) {
	api := &fakeS3{headErr: &types.NotFound{}}
	store := testStore(api, &fakePresigner{})
	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.Equal(t, 1, api.created)
}

func TestEnsureBucketCreateRace(t *testing.T) {
	api := &fakeS3{
		headErr:   &types.NotFound{},
		createErr: &types.BucketAlreadyOwnedByYou{},
	}
	store := testStore(api, &fakePresigner{})
	require.NoError(t, store.EnsureBucket(context.Background()))
}
