package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type helloJob struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestEncode(t *testing.T) {
	content, err := Encode("HelloJob", helloJob{ID: 1, Name: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, `8:HelloJob{"id":1,"name":"job-1"}`, content)
}

func TestEncodeRequiresType(t *testing.T) {
	_, err := Encode("", helloJob{})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	jobType, body, err := Decode(`8:HelloJob{"id":1,"name":"job-1"}`)
	require.NoError(t, err)
	assert.Equal(t, "HelloJob", jobType)
	assert.JSONEq(t, `{"id":1,"name":"job-1"}`, string(body))
}

func TestDecodeTypeContainingColon(t *testing.T) {
	jobType, body, err := Decode(Wrap("a:b", []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, "a:b", jobType)
	assert.Equal(t, "{}", string(body))
}

func TestDecodeMalformed(t *testing.T) {
	for _, content := range []string{
		"",
		"HelloJob{}",
		"x:HelloJob{}",
		"0:{}",
		"99:short",
	} {
		_, _, err := Decode(content)
		assert.ErrorIs(t, err, ErrMalformed, "content %q", content)
	}
}
