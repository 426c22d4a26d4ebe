package blob

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config holds the credentials and endpoint for an S3-compatible store.
// Endpoint and PathStyle allow pointing at non-AWS gateways.
type S3Config struct {
	Account   string
	Key       string
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Store stores blobs in one bucket of an S3-compatible service.
type S3Store struct {
	s3     *s3.S3
	bucket string
	client *http.Client
}

// NewS3Store builds a store for the given bucket. httpClient may be nil,
// in which case http.DefaultClient uploads the presigned requests.
func NewS3Store(cfg S3Config, bucket string, httpClient *http.Client) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg := aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.NewStaticCredentials(cfg.Account, cfg.Key, ""))
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(cfg.PathStyle)
	}
	if httpClient != nil {
		awsCfg = awsCfg.WithHTTPClient(httpClient)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage session: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &S3Store{s3: s3.New(sess), bucket: bucket, client: httpClient}, nil
}

// Put streams a payload to the bucket through a presigned upload URL.
func (s *S3Store) Put(key string, data io.Reader, size int64) error {
	prereq, _ := s.s3.PutObjectRequest(&s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	presignedURL, err := prereq.Presign(10 * time.Minute)
	if err != nil {
		return fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	req, err := http.NewRequest(http.MethodPut, presignedURL, data)
	if err != nil {
		return fmt.Errorf("failed to build upload request for %s: %w", key, err)
	}
	req.ContentLength = size

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("failed to read upload response for %s: %w", key, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload of %s rejected (code %d): %s", key, resp.StatusCode, buf.String())
	}
	return nil
}

// Get retrieves the payload stored under key.
func (s *S3Store) Get(key string) (io.ReadCloser, error) {
	obj, err := s.s3.GetObject(&s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return obj.Body, nil
}

// SignedURL presigns key access so the scoring service can read inputs
// and write outputs without our credentials.
func (s *S3Store) SignedURL(key string, method string, expiry time.Duration) (string, error) {
	var req *request.Request
	switch method {
	case http.MethodPut:
		req, _ = s.s3.PutObjectRequest(&s3.PutObjectInput{Bucket: &s.bucket, Key: &key})
	default:
		req, _ = s.s3.GetObjectRequest(&s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	}
	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s %s: %w", method, key, err)
	}
	return url, nil
}
