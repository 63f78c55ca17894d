package chunk

import (
	"strconv"
	"strings"

	// Packages
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Name returns the object name for chunk index of total for the original
// filename, in the form "<filename>.part_<index>_of_<total>"
func Name(filename string, index, total uint64) string {
	var b strings.Builder
	b.Grow(len(filename) + len(schema.PartMarker) + len(schema.PartSeparator) + 40)
	b.WriteString(filename)
	b.WriteString(schema.PartMarker)
	b.WriteString(strconv.FormatUint(index, 10))
	b.WriteString(schema.PartSeparator)
	b.WriteString(strconv.FormatUint(total, 10))
	return b.String()
}

// Parse decodes an object name into the original filename, index and total.
// The name is split on the last part marker, so the filename may itself
// contain dots and underscores. Returns an error wrapping schema.ErrDecode
// when the name is not a chunk object name.
func Parse(name string) (string, uint64, uint64, error) {
	i := strings.LastIndex(name, schema.PartMarker)
	if i < 0 {
		return "", 0, 0, schema.ErrDecode.Withf("%q: missing %q", name, schema.PartMarker)
	} else if i == 0 {
		return "", 0, 0, schema.ErrDecode.Withf("%q: missing filename", name)
	}
	filename, fields := name[:i], name[i+len(schema.PartMarker):]

	// Split the trailing fields into index and total
	index, total, ok := strings.Cut(fields, schema.PartSeparator)
	if !ok {
		return "", 0, 0, schema.ErrDecode.Withf("%q: missing %q", name, schema.PartSeparator)
	}
	n, err := parsePositive(index)
	if err != nil {
		return "", 0, 0, schema.ErrDecode.Withf("%q: index: %v", name, err)
	}
	m, err := parsePositive(total)
	if err != nil {
		return "", 0, 0, schema.ErrDecode.Withf("%q: total: %v", name, err)
	}
	if n > m {
		return "", 0, 0, schema.ErrDecode.Withf("%q: index %d exceeds total %d", name, n, m)
	}

	// Return success
	return filename, n, m, nil
}

// Record decodes the name of an object into a chunk record
func Record(obj schema.Object) (*schema.ChunkRecord, error) {
	filename, index, total, err := Parse(obj.Name)
	if err != nil {
		return nil, err
	}
	return &schema.ChunkRecord{
		Object:   obj,
		Filename: filename,
		Index:    index,
		Total:    total,
	}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func parsePositive(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, err
	} else if n == 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
