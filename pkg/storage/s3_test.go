package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubS3(t *testing.T) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	origDel := deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
		deleteObject = origDel
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func TestNewS3StorageAppliesEndpointAndRegion(t *testing.T) {
	stubS3(t)

	var region, endpoint string
	var pathStyle bool
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		region = lo.Region
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint != nil {
			endpoint = *opts.BaseEndpoint
		}
		pathStyle = opts.UsePathStyle
		return &s3.Client{}
	}

	st, err := NewS3Storage(context.Background(), S3Config{
		Region:   "us-east-1",
		Endpoint: "http://127.0.0.1:9000",
		Bucket:   "academy",
	})
	require.NoError(t, err)
	require.NotNil(t, st)

	assert.Equal(t, "us-east-1", region)
	assert.Equal(t, "http://127.0.0.1:9000", endpoint)
	assert.True(t, pathStyle)
	assert.Equal(t, maxPresignTTL, st.(*s3Storage).cfg.URLTTL)
}

func TestNewS3StorageErrors(t *testing.T) {
	stubS3(t)

	_, err := NewS3Storage(context.Background(), S3Config{})
	assert.Error(t, err)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Storage(context.Background(), S3Config{Bucket: "academy"})
	assert.EqualError(t, err, "load-fail")
}

func TestS3UploadStreamsBodyToPresignedURL(t *testing.T) {
	stubS3(t)

	var gotBody, gotHeader string
	var gotLength int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotLength = r.ContentLength
		gotHeader = r.Header.Get("X-Amz-Meta-Test")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "academy", *in.Bucket)
		assert.Equal(t, "videos/1_intro.mp4", *in.Key)
		return &v4.PresignedHTTPRequest{
			URL:    srv.URL + "/academy/" + *in.Key,
			Method: http.MethodPut,
			SignedHeader: http.Header{
				"Host":            {"example.invalid"},
				"X-Amz-Meta-Test": {"yes"},
			},
		}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *in.Key}, nil
	}

	st, err := NewS3Storage(context.Background(), S3Config{Bucket: "academy", URLTTL: time.Hour})
	require.NoError(t, err)

	url, err := st.Upload(context.Background(), UploadInput{
		Key:    "videos/1_intro.mp4",
		Reader: strings.NewReader("binary"),
		Size:   6,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://signed.example/videos/1_intro.mp4", url)
	assert.Equal(t, "binary", gotBody)
	assert.Equal(t, int64(6), gotLength)
	assert.Equal(t, "yes", gotHeader)
}

func TestS3UploadRejectedByStore(t *testing.T) {
	stubS3(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("SignatureDoesNotMatch"))
	}))
	defer srv.Close()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: srv.URL + "/x", Method: http.MethodPut}, nil
	}

	st, err := NewS3Storage(context.Background(), S3Config{Bucket: "academy", PublicBaseURL: "https://cdn.example"})
	require.NoError(t, err)

	_, err = st.Upload(context.Background(), UploadInput{Key: "k", Reader: strings.NewReader("abc"), Size: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
}

func TestS3PublicURLAndDelete(t *testing.T) {
	stubS3(t)

	var deletedKey string
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		deletedKey = *in.Key
		return &s3.DeleteObjectOutput{}, nil
	}

	st, err := NewS3Storage(context.Background(), S3Config{Bucket: "academy", PublicBaseURL: "https://cdn.example/academy/"})
	require.NoError(t, err)

	url, err := st.URL(context.Background(), "videos/1_a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/academy/videos/1_a.mp4", url)

	require.NoError(t, st.Delete(context.Background(), "videos/1_a.mp4"))
	assert.Equal(t, "videos/1_a.mp4", deletedKey)
}

func TestS3UploadZeroByteBinarySendsContentLength(t *testing.T) {
	stubS3(t)

	var gotLength int64 = -1
	var gotEncoding []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		gotLength = r.ContentLength
		gotEncoding = r.TransferEncoding
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: srv.URL + "/academy/" + *in.Key, Method: http.MethodPut}, nil
	}

	st, err := NewS3Storage(context.Background(), S3Config{Bucket: "academy", PublicBaseURL: "https://cdn.example"})
	require.NoError(t, err)

	url, err := st.Upload(context.Background(), UploadInput{
		Key:    "videos/1_empty.mp4",
		Reader: strings.NewReader(""),
		Size:   0,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/videos/1_empty.mp4", url)
	assert.Equal(t, int64(0), gotLength)
	assert.Empty(t, gotEncoding)
}

func TestS3URLSignsAFreshDownloadOnEveryCall(t *testing.T) {
	stubS3(t)

	var calls int
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var opts s3.PresignOptions
		for _, fn := range optFns {
			fn(&opts)
		}
		assert.Equal(t, 2*time.Hour, opts.Expires)
		assert.Equal(t, "academy", *in.Bucket)

		calls++
		return &v4.PresignedHTTPRequest{URL: fmt.Sprintf("https://signed.example/%s?sig=%d", *in.Key, calls)}, nil
	}

	st, err := NewS3Storage(context.Background(), S3Config{Bucket: "academy", URLTTL: 2 * time.Hour})
	require.NoError(t, err)

	first, err := st.URL(context.Background(), "videos/1_intro.mp4")
	require.NoError(t, err)
	second, err := st.URL(context.Background(), "videos/1_intro.mp4")
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, "https://signed.example/videos/1_intro.mp4?sig=1", first)
	assert.Equal(t, "https://signed.example/videos/1_intro.mp4?sig=2", second)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("no credentials")
	}
	_, err = st.URL(context.Background(), "videos/1_intro.mp4")
	assert.ErrorContains(t, err, "no credentials")
}
