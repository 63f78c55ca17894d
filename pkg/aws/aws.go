package aws

import (
	"context"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	config "github.com/aws/aws-sdk-go-v2/config"
	credentials "github.com/aws/aws-sdk-go-v2/credentials"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	filesplit "github.com/mutablelogic/go-filesplit"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Config loads the default AWS configuration, overridden by the region,
// endpoint and credentials options
func Config(ctx context.Context, opt ...filesplit.Opt) (aws.Config, error) {
	opts, err := filesplit.ApplyOpts(opt...)
	if err != nil {
		return aws.Config{}, err
	}

	// Set load options
	var load []func(*config.LoadOptions) error
	if region := opts.Region(); region != "" {
		load = append(load, config.WithRegion(region))
	}
	if opts.Anonymous() {
		load = append(load, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	} else if key, secret := opts.Credentials(); key != "" {
		load = append(load, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}

	// Load the default configuration
	cfg, err := config.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return aws.Config{}, err
	}

	// We set the endpoint if it is not empty
	if endpoint := opts.S3Endpoint(); endpoint != nil {
		cfg.BaseEndpoint = aws.String(*endpoint)
	}

	// Return success
	return cfg, nil
}

// NewS3 returns an S3 client for the configuration, using path-style
// addressing so S3-compatible services work with a custom endpoint
func NewS3(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true

		// If there is no region set, we need to set the credentials to nil
		if o.Region == "" {
			o.Credentials = nil
			o.Region = "none"
		}
	})
}
