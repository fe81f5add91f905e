package storage

import "github.com/dukerupert/atelier/internal/domain"

// Configuration and key errors are EINVALID; backend failures are
// EEXTERNAL so a failed upload answers 502 rather than 500.
var (
	ErrBucketRequired    = domain.Invalid("storage.s3", "S3 bucket name is required")
	ErrPublicURLRequired = domain.Invalid("storage.s3", "S3 public URL is required")
	ErrInvalidKey        = domain.Invalid("storage.key", "invalid storage key")
)

func unknownProvider(provider string) error {
	return domain.Errorf(domain.EINVALID, "storage.new", "unknown storage provider: %q", provider)
}

func backendError(op string, err error) error {
	return domain.External(err, op, "image storage is unavailable")
}
