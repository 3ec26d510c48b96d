// Package envelope encodes typed job payloads as queue content.
//
// The wire format is "{len(type)}:{type}{body}", where body is the JSON
// serialization of the job. The queue itself treats content as opaque.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when content does not follow the envelope format.
var ErrMalformed = errors.New("malformed job envelope")

// Encode serializes body as JSON and wraps it with jobType.
func Encode(jobType string, body any) (string, error) {
	if jobType == "" {
		return "", fmt.Errorf("encode: job type is required")
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", jobType, err)
	}
	return Wrap(jobType, b), nil
}

// Wrap builds content from an already serialized body.
func Wrap(jobType string, body []byte) string {
	return strconv.Itoa(len(jobType)) + ":" + jobType + string(body)
}

// Decode splits content into its job type and serialized body.
func Decode(content string) (jobType string, body []byte, err error) {
	prefix, rest, ok := strings.Cut(content, ":")
	if !ok {
		return "", nil, fmt.Errorf("%w: no length prefix", ErrMalformed)
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n <= 0 || n > len(rest) {
		return "", nil, fmt.Errorf("%w: bad type length %q", ErrMalformed, prefix)
	}
	return rest[:n], []byte(rest[n:]), nil
}
