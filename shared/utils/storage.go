package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Storage uploads and downloads pipeline documents (signature images,
// generated lease PDFs) keyed by caller-chosen paths.
type S3Storage struct {
	client *s3.S3
	bucket string
}

// NewS3Storage creates an S3-backed blob store from environment config.
func NewS3Storage() (*S3Storage, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	bucket := os.Getenv("S3_DOCUMENTS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("S3_DOCUMENTS_BUCKET must be set")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Storage{
		client: s3.New(sess),
		bucket: bucket,
	}, nil
}

// Upload stores data under key and returns the stable reference.
func (s *S3Storage) Upload(key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Download retrieves the object stored under key.
func (s *S3Storage) Download(key string) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
