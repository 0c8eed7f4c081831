// Package avatars turns stored avatar references into URLs.
package avatars

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// DefaultPlaceholder is shown for users without an avatar.
const DefaultPlaceholder = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

// Presigner is the subset of s3.PresignClient used here.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Resolver maps avatar refs to URLs: empty refs get the placeholder, absolute
// URLs pass through, and object keys become public bucket URLs or presigned
// GETs when a Presigner is set.
type Resolver struct {
	bucket      string
	placeholder string
	presigner   Presigner
	ttl         time.Duration
	logger      *logging.Logger
}

// Config for a Resolver.
type Config struct {
	Bucket      string
	Placeholder string
	PresignTTL  time.Duration
}

func NewResolver(cfg Config, presigner Presigner, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &Resolver{
		bucket:      cfg.Bucket,
		placeholder: cfg.Placeholder,
		presigner:   presigner,
		ttl:         cfg.PresignTTL,
		logger:      logger,
	}
}

// URL resolves ref. Presign failures fall back to the public URL.
func (r *Resolver) URL(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return r.placeholder
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if r.bucket == "" {
		return r.placeholder
	}
	key := strings.TrimPrefix(ref, "/")
	if r.presigner != nil {
		req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(r.ttl))
		if err == nil && req != nil {
			return req.URL
		}
		r.logger.Warn("avatars: presign failed, using public url", "error", err, "key", key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", r.bucket, (&url.URL{Path: key}).EscapedPath())
}
