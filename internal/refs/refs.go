// Package refs parses post-receive update records and classifies ref names.
package refs

import (
	"fmt"
	"strings"
)

// NullSHA is the special value git uses to signal a ref or object does not exist.
const NullSHA = "0000000000000000000000000000000000000000"

// Kind identifies the namespace an updated ref belongs to.
type Kind int

const (
	Unknown Kind = iota
	Branch
	Tag
)

// String returns the kind name as used in log output.
func (k Kind) String() string {
	switch k {
	case Branch:
		return "branch"
	case Tag:
		return "tag"
	default:
		return "unknown"
	}
}

// UpdateRecord is one line of post-receive input: the previous and new object
// ids of a ref and its full name.
type UpdateRecord struct {
	OldID   string
	NewID   string
	RefName string
}

// Descriptor is a classified ref name.
type Descriptor struct {
	Kind      Kind
	ShortName string
}

// ParseLine parses one whitespace-separated "<old> <new> <refname>" triple.
func ParseLine(line string) (UpdateRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return UpdateRecord{}, fmt.Errorf("malformed update record %q: want \"<old> <new> <refname>\"", line)
	}
	return UpdateRecord{OldID: fields[0], NewID: fields[1], RefName: fields[2]}, nil
}

// Classify determines the ref kind by namespace prefix. The short name is the
// segment after the final slash regardless of kind.
func Classify(refName string) Descriptor {
	parts := strings.Split(refName, "/")
	short := parts[len(parts)-1]

	switch {
	case strings.HasPrefix(refName, "refs/heads/"):
		return Descriptor{Kind: Branch, ShortName: short}
	case strings.HasPrefix(refName, "refs/tags/"):
		return Descriptor{Kind: Tag, ShortName: short}
	default:
		return Descriptor{Kind: Unknown, ShortName: short}
	}
}

// IsNullSHA reports whether id is the all-zero object id.
func IsNullSHA(id string) bool {
	return id == NullSHA
}
