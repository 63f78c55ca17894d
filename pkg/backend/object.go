package backend

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	// Packages
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	blob "gocloud.dev/blob"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// reader classifies errors while an object is read
type reader struct {
	io.ReadCloser
	path string
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// SendObject appends an object to the container. The object is either
// stored in full or not at all. A failed send does not consume a sequence
// number, so retrying the same object cannot leave two copies behind.
func (b *blobbackend) SendObject(ctx context.Context, req schema.SendObjectRequest, body io.Reader) (*schema.Object, error) {
	if req.Name == "" || strings.Contains(req.Name, "/") {
		return nil, httpresponse.ErrBadRequest.Withf("invalid object name %q", req.Name)
	}

	// Allocate the next sequence number for the container
	seq, err := b.nextSeq(ctx, req.Container)
	if err != nil {
		return nil, err
	}
	key := b.objectKey(req.Container, seq, req.Name)

	// Build metadata
	meta := make(map[string]string, len(req.Meta)+1)
	for k, v := range req.Meta {
		meta[k] = v
	}
	meta[schema.AttrName] = req.Name

	// Cancelling the writer context before Close discards the write
	child, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := b.bucket.NewWriter(child, key, &blob.WriterOptions{
		ContentType: req.ContentType,
		Metadata:    meta,
	})
	if err != nil {
		return nil, blobErr(err, key)
	} else if _, err := io.Copy(w, body); err != nil {
		cancel()
		w.Close()
		return nil, blobErr(err, key)
	} else if err := w.Close(); err != nil {
		return nil, blobErr(err, key)
	}

	// Commit the sequence number
	b.mu.Lock()
	b.seq[req.Container] = seq + 1
	b.mu.Unlock()

	// Get attributes to return
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, blobErr(err, key)
	}

	// Return success
	return &schema.Object{
		Container: req.Container,
		Name:      req.Name,
		Path:      b.pathFromStorageKey(key),
		Seq:       seq,
		Size:      attrs.Size,
		ModTime:   attrs.ModTime,
		ETag:      attrs.ETag,
	}, nil
}

// ListObjects returns the objects in a container, oldest-first or
// newest-first. Keys in the container which are not objects are skipped.
func (b *blobbackend) ListObjects(ctx context.Context, req schema.ListObjectsRequest) (*schema.ListObjectsResponse, error) {
	if _, err := b.GetContainer(ctx, req.Container); err != nil {
		return nil, err
	}

	// Response
	response := schema.ListObjectsResponse{
		Container: req.Container,
	}

	// List all keys under the container
	prefix := b.containerKey(req.Container)
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, blobErr(err, prefix)
		} else if obj.IsDir {
			continue
		}

		// Parse "<seq>/<name>"
		seq, name, ok := parseObjectKey(strings.TrimPrefix(obj.Key, prefix))
		if !ok {
			continue
		}
		o := schema.Object{
			Container: req.Container,
			Name:      name,
			Path:      b.pathFromStorageKey(obj.Key),
			Seq:       seq,
			Size:      obj.Size,
			ModTime:   obj.ModTime,
		}
		if len(obj.MD5) > 0 {
			o.ETag = fmt.Sprintf("%x", obj.MD5)
		}
		response.Body = append(response.Body, o)
	}

	// Sort by sequence in the requested order
	slices.SortFunc(response.Body, func(a, b schema.Object) int {
		if req.Order == schema.NewestFirst {
			return compareSeq(b.Seq, a.Seq)
		}
		return compareSeq(a.Seq, b.Seq)
	})
	response.Count = len(response.Body)

	return &response, nil
}

// FetchObject returns a reader for the object at the given path, as
// returned in schema.Object.Path
func (b *blobbackend) FetchObject(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := b.bucket.NewReader(ctx, b.storageKey(path), nil)
	if err != nil {
		return nil, blobErr(err, path)
	}
	return &reader{r, path}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// nextSeq returns the next sequence number for a container, scanning the
// container the first time it is used by this backend
func (b *blobbackend) nextSeq(ctx context.Context, container string) (uint64, error) {
	b.mu.Lock()
	seq, ok := b.seq[container]
	b.mu.Unlock()
	if ok {
		return seq, nil
	}

	// Find the newest object
	resp, err := b.ListObjects(ctx, schema.ListObjectsRequest{Container: container, Order: schema.NewestFirst})
	if err != nil {
		return 0, err
	}
	seq = 1
	if len(resp.Body) > 0 {
		seq = resp.Body[0].Seq + 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.seq[container]; ok && existing > seq {
		seq = existing
	}
	b.seq[container] = seq
	return seq, nil
}

func parseObjectKey(rel string) (uint64, string, bool) {
	seq, name, ok := strings.Cut(rel, "/")
	if !ok || len(seq) != seqWidth || name == "" || strings.Contains(name, "/") {
		return 0, "", false
	}
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, name, true
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = blobErr(err, r.path)
	}
	return n, err
}
