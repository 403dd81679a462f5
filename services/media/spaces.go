package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/squadran/squadran-api/config"
)

// Uploader stores user-supplied media (institution logos, avatars, post
// images) on an S3-compatible Spaces bucket and hands back public URLs for
// the documents that reference them.
type Uploader struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	cdnURL   string
}

// Kind namespaces uploaded objects so a tenant's media can be listed and
// swept together.
type Kind string

const (
	KindLogo   Kind = "logos"
	KindAvatar Kind = "avatars"
	KindPost   Kind = "posts"
)

// NewUploader builds an Uploader from the environment. Returns nil without
// error when no Spaces credentials are configured; callers then keep using
// externally hosted URLs.
func NewUploader(env *config.EnviornmentVariable) (*Uploader, error) {
	if env.SPACES_ACCESS_KEY == "" || env.SPACES_SECRET_KEY == "" || env.SPACES_BUCKET == "" {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			env.SPACES_ACCESS_KEY,
			env.SPACES_SECRET_KEY,
			"",
		),
		Endpoint:         aws.String(env.SPACES_ENDPOINT),
		Region:           aws.String(env.SPACES_REGION),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &Uploader{
		s3Client: s3.New(sess),
		bucket:   env.SPACES_BUCKET,
		endpoint: env.SPACES_ENDPOINT,
		cdnURL:   env.SPACES_CDN_URL,
	}, nil
}

// Upload stores one object under <kind>/<institutionID>/ and returns its
// public URL. The original filename only contributes its extension.
func (u *Uploader) Upload(ctx context.Context, kind Kind, institutionID, filename string, data io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s/%s%s", kind, institutionID, uuid.New().String(), ext)
	_, err := u.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return u.publicURL(key), nil
}

// Delete removes a previously uploaded object by key.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SweepInstitution deletes every object uploaded for a tenant. Used by the
// cascade when an institution is removed.
func (u *Uploader) SweepInstitution(ctx context.Context, institutionID string) error {
	for _, kind := range []Kind{KindLogo, KindAvatar, KindPost} {
		prefix := fmt.Sprintf("%s/%s/", kind, institutionID)
		result, err := u.s3Client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(u.bucket),
			Prefix: aws.String(prefix),
		})
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range result.Contents {
			if err := u.Delete(ctx, *obj.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *Uploader) publicURL(key string) string {
	if u.cdnURL != "" {
		return fmt.Sprintf("%s/%s", u.cdnURL, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", u.bucket, u.endpoint, key)
}
