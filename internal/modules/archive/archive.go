// Package archive stores the original bytes of committed uploads in object
// storage so every snapshot can be traced back to the file it came from.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/capitalx/capitalx/internal/config"
	"github.com/capitalx/capitalx/internal/events"
	"github.com/rs/zerolog"
)

// Request describes one upload to archive
type Request struct {
	CustomerCode    string
	UploadReference string
	PeriodLabel     string
	FileName        string
	Content         []byte
	UploadID        int64
}

// Key returns the object key of the request below prefix:
// <prefix>/<customerCode>/<uploadReference>/<fileName>
func (r Request) Key(prefix string) string {
	return path.Join(strings.Trim(prefix, "/"), r.CustomerCode, r.UploadReference, path.Base(r.FileName))
}

// Archiver stores upload content and returns the key it was stored under
type Archiver interface {
	Archive(ctx context.Context, req Request) (string, error)
}

// NopArchiver discards uploads. Used when no bucket is configured.
type NopArchiver struct{}

// Archive returns an empty key
func (NopArchiver) Archive(ctx context.Context, req Request) (string, error) {
	return "", nil
}

// Uploader is the subset of manager.Uploader used by S3Archiver
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes uploads to an S3 compatible bucket
type S3Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Archiver creates an archiver writing through uploader
func NewS3Archiver(uploader Uploader, bucket, prefix string, log zerolog.Logger) *S3Archiver {
	return &S3Archiver{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("service", "archive").Str("bucket", bucket).Logger(),
	}
}

// NewFromConfig builds the archiver described by cfg: an S3Archiver when a
// bucket is set, NopArchiver otherwise.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (Archiver, error) {
	if !cfg.Enabled() {
		log.Info().Msg("Upload archive disabled, no bucket configured")
		return NopArchiver{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// R2, MinIO and friends need path-style addressing
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Archiver(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// Archive uploads req's content and returns its object key
func (a *S3Archiver) Archive(ctx context.Context, req Request) (string, error) {
	key := req.Key(a.prefix)

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(req.Content),
		ContentType: aws.String(contentType(req.FileName)),
		Metadata: map[string]string{
			"customer-code": req.CustomerCode,
			"period-label":  req.PeriodLabel,
			"upload-id":     strconv.FormatInt(req.UploadID, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, a.bucket, err)
	}

	a.log.Debug().Str("key", key).Int("size", len(req.Content)).Msg("Upload archived")
	return key, nil
}

func contentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}

// EventEmitter receives archive outcomes
type EventEmitter interface {
	Emit(ctx context.Context, module string, data events.EventData)
}

// Subscriber archives every committed upload
type Subscriber struct {
	archiver Archiver
	events   EventEmitter
	log      zerolog.Logger
}

// NewSubscriber creates a subscriber archiving through archiver. emitter may be nil.
func NewSubscriber(archiver Archiver, emitter EventEmitter, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		archiver: archiver,
		events:   emitter,
		log:      log.With().Str("component", "archive_subscriber").Logger(),
	}
}

// HandlePortfolioIngested archives the upload carried by event. The upload
// is already committed, so failures are logged and never returned.
func (s *Subscriber) HandlePortfolioIngested(ctx context.Context, event events.Event) {
	data, ok := event.Data.(*events.PortfolioIngestedData)
	if !ok || len(data.Content) == 0 {
		return
	}

	key, err := s.archiver.Archive(ctx, Request{
		CustomerCode:    data.CustomerCode,
		UploadReference: data.UploadReference,
		PeriodLabel:     data.PeriodLabel,
		FileName:        data.FileName,
		Content:         data.Content,
		UploadID:        data.UploadID,
	})
	if err != nil {
		s.log.Error().
			Err(err).
			Int64("upload_id", data.UploadID).
			Str("upload_reference", data.UploadReference).
			Msg("Failed to archive upload")
		if s.events != nil {
			s.events.Emit(ctx, "archive", &events.ErrorOccurredData{
				Error: err.Error(),
				Context: map[string]interface{}{
					"upload_id":        data.UploadID,
					"upload_reference": data.UploadReference,
				},
			})
		}
		return
	}
	if key == "" {
		return
	}

	if s.events != nil {
		s.events.Emit(ctx, "archive", &events.UploadArchivedData{
			UploadReference: data.UploadReference,
			Key:             key,
			UploadID:        data.UploadID,
			SizeBytes:       len(data.Content),
		})
	}
}
