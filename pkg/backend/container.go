package backend

import (
	"context"
	"io"
	"sort"
	"strings"

	// Packages
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	blob "gocloud.dev/blob"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CreateContainer creates a new, empty container. It fails with
// schema.ErrContainerCreation when the container already exists, since a
// container holds the objects of exactly one transfer.
func (b *blobbackend) CreateContainer(ctx context.Context, name string) (*schema.Container, error) {
	if !schema.ValidContainer(name) {
		return nil, schema.ErrContainerCreation.Withf("invalid container name %q", name)
	}
	key := b.containerKey(name) + markerKey

	// Check for an existing container
	if exists, err := b.bucket.Exists(ctx, key); err != nil {
		return nil, schema.ErrContainerCreation.Withf("%q: %w", name, blobErr(err, key))
	} else if exists {
		return nil, schema.ErrContainerCreation.Withf("%q: %w", name, httpresponse.ErrConflict.Withf("container %q already exists", name))
	}

	// Write the marker
	if err := b.bucket.WriteAll(ctx, key, []byte(name), &blob.WriterOptions{
		ContentType: "text/plain",
	}); err != nil {
		return nil, schema.ErrContainerCreation.Withf("%q: %w", name, blobErr(err, key))
	}

	// Reset the sequence for the new container
	b.mu.Lock()
	b.seq[name] = 1
	b.mu.Unlock()

	// Return the container
	return b.GetContainer(ctx, name)
}

// GetContainer returns an existing container
func (b *blobbackend) GetContainer(ctx context.Context, name string) (*schema.Container, error) {
	if !schema.ValidContainer(name) {
		return nil, httpresponse.ErrBadRequest.Withf("invalid container name %q", name)
	}
	key := b.containerKey(name) + markerKey
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, blobErr(err, name)
	}
	return &schema.Container{
		Name:    name,
		Path:    b.pathFromStorageKey(strings.TrimSuffix(b.containerKey(name), "/")),
		ModTime: attrs.ModTime,
	}, nil
}

// ListContainers returns all containers, sorted by name
func (b *blobbackend) ListContainers(ctx context.Context) ([]schema.Container, error) {
	var prefix string
	if b.bucketPrefix != "" {
		prefix = b.bucketPrefix + "/"
	}

	// List the immediate children of the prefix
	var result []schema.Container
	iter := b.bucket.List(&blob.ListOptions{
		Prefix:    prefix,
		Delimiter: "/",
	})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, blobErr(err, prefix)
		} else if !obj.IsDir {
			continue
		}

		// Only directories with a marker are containers
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		if container, err := b.GetContainer(ctx, name); err == nil {
			result = append(result, *container)
		}
	}

	// Return sorted by name
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}
