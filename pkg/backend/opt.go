package backend

import (
	"fmt"
	"net/url"

	// Packages
	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url       *url.URL
	awsConfig *aws.Config  // used for s3:// in place of URL parameters
	endpoint  string       // custom S3 endpoint
	anonymous bool         // use anonymous credentials
	tracer    trace.Tracer // when set, S3 calls produce child spans
}

// Opt is an option for a blob transport
type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func apply(url *url.URL, opts ...Opt) (*opt, error) {
	o := opt{url: url}
	for _, fn := range opts {
		if err := fn(&o); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WithEndpoint sets the endpoint of an S3-compatible service, such as
// minio. Path-style addressing is always used with a custom endpoint.
func WithEndpoint(endpoint string) Opt {
	return func(o *opt) error {
		u, err := url.Parse(endpoint)
		if err != nil {
			return err
		} else if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint must be http:// or https://, got %q", endpoint)
		}
		o.endpoint = u.String()
		o.set("endpoint", o.endpoint)
		o.set("s3ForcePathStyle", "true")
		if u.Scheme == "http" {
			o.set("disable_https", "true")
		}
		return nil
	}
}

// WithAnonymous uses anonymous credentials
func WithAnonymous() Opt {
	return func(o *opt) error {
		o.anonymous = true
		o.set("anonymous", "true")
		return nil
	}
}

// WithCreateDir creates the root directory of a file:// transport
func WithCreateDir() Opt {
	return func(o *opt) error {
		if o.url != nil && o.url.Scheme != "file" {
			return fmt.Errorf("create_dir is only supported for file:// URLs")
		}
		o.set("create_dir", "true")
		return nil
	}
}

// WithTracer sets the tracer. On an s3:// transport opened with
// WithAWSConfig, each S3 API call is traced.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opt) error {
		o.tracer = tracer
		return nil
	}
}

// WithAWSConfig sets the AWS SDK configuration for s3:// transports,
// which is used in place of any URL parameters
func WithAWSConfig(cfg aws.Config) Opt {
	return func(o *opt) error {
		o.awsConfig = &cfg
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (o *opt) set(key, value string) {
	if o.url == nil {
		return
	}
	q := o.url.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	o.url.RawQuery = q.Encode()
}
