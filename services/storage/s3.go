package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config holds configuration for an S3-compatible bucket
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS
	PublicURL string // CDN or bucket base URL
}

// S3Store stores objects in an S3-compatible bucket
type S3Store struct {
	s3Client  *s3.S3
	bucket    string
	publicURL string
}

// NewS3Store creates a new S3 client
func NewS3Store(config S3Config) (*S3Store, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage session: %w", err)
	}

	publicURL := strings.TrimRight(config.PublicURL, "/")
	if publicURL == "" {
		if config.Endpoint != "" {
			publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(config.Endpoint, "/"), config.Bucket)
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", config.Bucket, config.Region)
		}
	}

	return &S3Store{
		s3Client:  s3.New(sess),
		bucket:    config.Bucket,
		publicURL: publicURL,
	}, nil
}

// Put uploads a file and returns its public URL
func (s *S3Store) Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) (string, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return s.PublicURL(key), nil
}

// Delete deletes a file
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SignedURL generates a presigned GET URL
func (s *S3Store) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return url, nil
}

// PublicURL returns the public URL for a key
func (s *S3Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", s.publicURL, key)
}

// KeyFromURL maps a public URL back to its key; ok is false for foreign URLs
func (s *S3Store) KeyFromURL(url string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
