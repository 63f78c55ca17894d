package aws_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	// Packages
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	filesplit "github.com/mutablelogic/go-filesplit"
	aws "github.com/mutablelogic/go-filesplit/pkg/aws"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Config_Static(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg, err := aws.Config(ctx,
		filesplit.WithRegion("eu-west-2"),
		filesplit.WithS3Endpoint("http://localhost:9000"),
		filesplit.WithCredentials("AKIDEXAMPLE", "secret"),
	)
	require.NoError(t, err)
	assert.Equal("eu-west-2", cfg.Region)
	if assert.NotNil(cfg.BaseEndpoint) {
		assert.Equal("http://localhost:9000", *cfg.BaseEndpoint)
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal("AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal("secret", creds.SecretAccessKey)

	assert.NotNil(aws.NewS3(cfg))
}

func Test_Config_BadEndpoint(t *testing.T) {
	_, err := aws.Config(context.Background(), filesplit.WithS3Endpoint("ftp://localhost"))
	assert.Error(t, err)
}

func Test_Error_Transient(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert := assert.New(t)
			err := responseError(tt.status)
			assert.Equal(tt.transient, aws.IsTransient(err))
			assert.Equal(tt.transient, aws.IsTransient(fmt.Errorf("wrapped: %w", err)))
		})
	}

	assert.True(t, aws.IsTransient(&smithyhttp.RequestSendError{Err: errors.New("connection reset")}))
	assert.False(t, aws.IsTransient(errors.New("other")))
	assert.False(t, aws.IsTransient(nil))
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New(http.StatusText(status)),
		},
	}
}
