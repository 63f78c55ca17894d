package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path"
	"strings"
	"sync"
	"syscall"

	// Packages
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	filesplit "github.com/mutablelogic/go-filesplit"
	aws "github.com/mutablelogic/go-filesplit/pkg/aws"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	otelaws "go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	blob "gocloud.dev/blob"
	s3blob "gocloud.dev/blob/s3blob"
	gcerrors "gocloud.dev/gcerrors"

	// Drivers
	_ "gocloud.dev/blob/fileblob" // file:// URLs
	_ "gocloud.dev/blob/memblob"  // mem:// URLs
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// blobbackend stores each container as a key prefix in a bucket. The
// container marker is "<container>/.container" and objects are stored at
// "<container>/<seq>/<name>", where seq is a zero-padded sequence number,
// so listing the prefix returns the objects in append order.
type blobbackend struct {
	*opt
	bucket       *blob.Bucket
	bucketPrefix string // key prefix for bucket operations (empty for file://)

	mu  sync.Mutex
	seq map[string]uint64 // next sequence number per container
}

var _ filesplit.Transport = (*blobbackend)(nil)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	markerKey = ".container"
	seqWidth  = 16
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewBlobBackend creates a new blob transport using Go CDK.
// Supported URL schemes: s3://, file://, mem://
// Examples:
//   - "s3://my-bucket/uploads?region=us-east-1"
//   - "file:///path/to/directory"
//   - "mem://"
//
// For S3 URLs, you can optionally provide an aws.Config via WithAWSConfig()
// for full control over AWS SDK configuration.
func NewBlobBackend(ctx context.Context, u string, opts ...Opt) (*blobbackend, error) {
	self := new(blobbackend)
	self.seq = make(map[string]uint64)

	// Set the options
	if url, err := url.Parse(u); err != nil {
		return nil, err
	} else if opt, err := apply(url, opts...); err != nil {
		return nil, err
	} else {
		self.opt = opt
	}

	// For s3/mem: the path is a key prefix within the bucket.
	// For file://: the path is the bucket root directory.
	if self.url.Scheme != "file" {
		self.bucketPrefix = strings.Trim(self.url.Path, "/")
	}

	// Open the bucket
	var bucket *blob.Bucket
	var err error

	if self.url.Scheme == "s3" && self.awsConfig != nil {
		// Use the provided AWS config to open S3 bucket directly
		cfg := self.awsConfig.Copy()
		if self.endpoint != "" {
			cfg.BaseEndpoint = sdkaws.String(self.endpoint)
		}
		if self.anonymous {
			cfg.Credentials = sdkaws.AnonymousCredentials{}
		}
		if self.tracer != nil {
			otelaws.AppendMiddlewares(&cfg.APIOptions)
		}
		bucket, err = s3blob.OpenBucket(ctx, aws.NewS3(cfg), self.url.Host, nil)
	} else if self.url.Scheme == "file" {
		// For file:// the path is the bucket root dir - open using just the path
		openURL := &url.URL{Scheme: "file", Path: self.url.Path, RawQuery: self.url.RawQuery}
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	} else {
		// For s3, mem, etc.: open at root (strip path) to avoid PrefixedBucket
		openURL := *self.url
		openURL.Path = ""
		openURL.RawPath = ""
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	self.bucket = bucket

	return self, nil
}

// NewFileBackend creates a file-based transport rooted at dir, which must
// be an absolute path
func NewFileBackend(ctx context.Context, dir string, opts ...Opt) (*blobbackend, error) {
	if !path.IsAbs(dir) {
		return nil, fmt.Errorf("backend dir %q must be an absolute path", dir)
	}
	return NewBlobBackend(ctx, "file://"+path.Clean(dir), opts...)
}

// Close the backend
func (b *blobbackend) Close() error {
	var result error
	if b.bucket != nil {
		result = errors.Join(result, b.bucket.Close())
		b.bucket = nil
	}

	// Return any errors
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// URL returns the URL for the backend
func (b *blobbackend) URL() *url.URL {
	return b.url
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// containerKey returns the storage key prefix of a container, with a
// trailing slash
func (b *blobbackend) containerKey(name string) string {
	if b.bucketPrefix != "" {
		return b.bucketPrefix + "/" + name + "/"
	}
	return name + "/"
}

// objectKey returns the storage key of an object
func (b *blobbackend) objectKey(container string, seq uint64, name string) string {
	return fmt.Sprintf("%s%0*d/%s", b.containerKey(container), seqWidth, seq, name)
}

// storageKey converts a logical object path into a storage key
func (b *blobbackend) storageKey(p string) string {
	sk := strings.TrimPrefix(path.Clean("/"+p), "/")
	if b.bucketPrefix != "" {
		return b.bucketPrefix + "/" + sk
	}
	return sk
}

// pathFromStorageKey converts a storage key into a logical object path
func (b *blobbackend) pathFromStorageKey(sk string) string {
	if b.bucketPrefix != "" {
		sk = strings.TrimPrefix(sk, b.bucketPrefix+"/")
	}
	return "/" + sk
}

// blobErr classifies a go-cloud blob error. Throttling and server-side
// failures are marked transient; other failures become httpresponse errors.
func blobErr(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if aws.IsTransient(err) || isConnErr(err) {
		return schema.ErrTransient.Withf("%q: %w", key, err)
	}
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return httpresponse.ErrNotFound.Withf("object %q not found", key)
	case gcerrors.PermissionDenied:
		return httpresponse.ErrForbidden.Withf("permission denied for %q", key)
	case gcerrors.InvalidArgument:
		return httpresponse.ErrBadRequest.Withf("invalid argument for %q: %v", key, err)
	case gcerrors.FailedPrecondition, gcerrors.AlreadyExists:
		return httpresponse.ErrConflict.Withf("precondition failed for %q: %v", key, err)
	case gcerrors.Internal, gcerrors.ResourceExhausted, gcerrors.DeadlineExceeded:
		return schema.ErrTransient.Withf("%q: %w", key, err)
	default:
		return httpresponse.ErrInternalError.Withf("blob operation failed: %v", err)
	}
}

// isConnErr reports whether err is a connection failure: a reset or
// refused connection, a broken pipe, a network timeout, or a stream
// which ended early
func isConnErr(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var neterr net.Error
	return errors.As(err, &neterr) && neterr.Timeout()
}
