package schema

import (
	"time"

	// Packages
	"github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Order is the traversal order of a container's history
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// Container is the transport's unit of grouping for one transfer
type Container struct {
	Name    string    `json:"name"`
	Path    string    `json:"path,omitempty"`
	ModTime time.Time `json:"modtime,omitzero"`
}

// Object is one stored object in a container's history. Path is the
// remote locator used to fetch the object's bytes.
type Object struct {
	Container string    `json:"container"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Seq       uint64    `json:"seq"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"modtime,omitzero"`
	ETag      string    `json:"etag,omitempty"`
}

type SendObjectRequest struct {
	Container   string
	Name        string
	ContentType string // optional: MIME type of the object
	Meta        map[string]string
}

type ListObjectsRequest struct {
	Container string `json:"container"`
	Order     Order  `json:"order,omitempty"`
}

type ListObjectsResponse struct {
	Container string   `json:"container"`
	Count     int      `json:"count"`
	Body      []Object `json:"body,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (o Order) String() string {
	switch o {
	case OldestFirst:
		return "oldest-first"
	case NewestFirst:
		return "newest-first"
	default:
		return "unknown"
	}
}

func (c Container) String() string {
	return types.Stringify(c)
}

func (o Object) String() string {
	return types.Stringify(o)
}

func (r ListObjectsRequest) String() string {
	return types.Stringify(r)
}

func (r ListObjectsResponse) String() string {
	return types.Stringify(r)
}
