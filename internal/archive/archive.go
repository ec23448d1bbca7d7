// Package archive stores generated invoice PDFs in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"time"

	"invoice-studio/internal/logger"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/rs/zerolog"
)

// Archive uploads PDFs under <prefix>/<owner>/<number>.pdf.
type Archive struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// New creates an Archive using the default AWS credential chain.
func New(bucket, region, prefix string) (*Archive, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return NewWithUploader(s3manager.NewUploader(sess), bucket, prefix), nil
}

// NewWithUploader wraps an existing uploader.
func NewWithUploader(u s3manageriface.UploaderAPI, bucket, prefix string) *Archive {
	return &Archive{
		uploader: u,
		bucket:   bucket,
		prefix:   prefix,
		log:      logger.WithComponent("archive"),
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key returns the object key for an invoice.
func (a *Archive) Key(ownerID int, invoiceNumber string) string {
	name := unsafeKeyChars.ReplaceAllString(invoiceNumber, "_")
	if name == "" || name == "_" {
		name = "draft"
	}
	return path.Join(a.prefix, fmt.Sprint(ownerID), name+".pdf")
}

// Store uploads pdf and returns the object URL.
func (a *Archive) Store(ctx context.Context, ownerID int, invoiceNumber string, pdf []byte) (string, error) {
	key := a.Key(ownerID, invoiceNumber)
	start := time.Now()

	out, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3: %w", key, err)
	}

	a.log.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int("bytes", len(pdf)).
		Dur("elapsed", time.Since(start)).
		Msg("pdf archived")
	return out.Location, nil
}
