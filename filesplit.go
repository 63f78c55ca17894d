package filesplit

import (
	"context"
	"io"
	"net/url"

	// Packages
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Transport stores named binary objects in containers. A container's
// history is append-only and can be listed oldest-first or newest-first.
type Transport interface {
	io.Closer

	// URL returns the transport destination URL
	URL() *url.URL

	// Containers
	CreateContainer(context.Context, string) (*schema.Container, error)
	GetContainer(context.Context, string) (*schema.Container, error)
	ListContainers(context.Context) ([]schema.Container, error)

	// Objects
	SendObject(context.Context, schema.SendObjectRequest, io.Reader) (*schema.Object, error)
	ListObjects(context.Context, schema.ListObjectsRequest) (*schema.ListObjectsResponse, error)

	// FetchObject returns the bytes of the object at the given locator.
	// Caller must close the returned reader.
	FetchObject(context.Context, string) (io.ReadCloser, error)
}
