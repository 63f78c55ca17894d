package filesplit

import (
	"net/url"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	s3endpoint *string
	region     *string
	accessKey  string
	secretKey  string
	anonymous  bool
}

// Opt represents a function that modifies the options
type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// ApplyOpts applies the given options to the opt struct
func ApplyOpts(opts ...Opt) (*opt, error) {
	var o opt

	// Apply the options
	for _, fn := range opts {
		if err := fn(&o); err != nil {
			return nil, err
		}
	}

	// Return success
	return &o, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - GET

func (o *opt) S3Endpoint() *string {
	return o.s3endpoint
}

func (o *opt) Region() string {
	return types.PtrString(o.region)
}

// Credentials returns the static access key and secret, if set
func (o *opt) Credentials() (string, string) {
	return o.accessKey, o.secretKey
}

func (o *opt) Anonymous() bool {
	return o.anonymous
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - SET

// Set the S3 endpoint URL
func WithS3Endpoint(endpoint string) Opt {
	return func(o *opt) error {
		if endpoint == "" {
			o.s3endpoint = nil
		} else if url, err := url.Parse(endpoint); err != nil {
			return httpresponse.ErrBadRequest.Withf("Invalid S3 endpoint: %s", err)
		} else if url.Scheme != "http" && url.Scheme != "https" {
			return httpresponse.ErrBadRequest.Withf("Invalid S3 endpoint scheme: %q", url.Scheme)
		} else {
			o.s3endpoint = types.StringPtr(url.String())
		}
		return nil
	}
}

// Set the AWS region
func WithRegion(region string) Opt {
	return func(o *opt) error {
		if region == "" {
			o.region = nil
		} else {
			o.region = &region
		}
		return nil
	}
}

// Set static credentials. Both key and secret are required when either is set.
func WithCredentials(key, secret string) Opt {
	return func(o *opt) error {
		if (key == "") != (secret == "") {
			return httpresponse.ErrBadRequest.With("Both access key and secret are required")
		}
		o.accessKey, o.secretKey = key, secret
		return nil
	}
}

// Use anonymous credentials, for S3-compatible services without authentication
func WithAnonymous() Opt {
	return func(o *opt) error {
		o.anonymous = true
		return nil
	}
}
