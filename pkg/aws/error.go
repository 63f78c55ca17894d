package aws

import (
	"errors"
	"net/http"

	// Packages
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// IsTransient reports whether err is an AWS error worth retrying:
// throttling, a server-side failure, or a request which could not be sent
func IsTransient(err error) bool {
	var senderr *smithyhttp.RequestSendError
	if errors.As(err, &senderr) {
		return true
	}
	var awserr *awshttp.ResponseError
	if errors.As(err, &awserr) {
		code := awserr.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return false
}
