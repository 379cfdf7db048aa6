package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresign_SnakeAndCamelKeys(t *testing.T) {
	snake := map[string]interface{}{
		"put_url": "https://bucket/put?sig=1",
		"get_url": "https://bucket/get?sig=2",
		"job_id":  "job-1",
	}
	p, err := ParsePresign(snake)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/put?sig=1", p.PutURL)
	assert.Equal(t, "https://bucket/get?sig=2", p.GetURL)
	assert.Equal(t, "job-1", p.JobID)

	camel := map[string]interface{}{
		"putUrl": "https://bucket/put?sig=1",
		"getUrl": "https://bucket/get?sig=2",
		"jobId":  "job-1",
	}
	p, err = ParsePresign(camel)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/put?sig=1", p.PutURL)
	assert.Equal(t, "https://bucket/get?sig=2", p.GetURL)
	assert.Equal(t, "job-1", p.JobID)
}

func TestParsePresign_UploadSpelling(t *testing.T) {
	p, err := ParsePresign(map[string]interface{}{
		"presignedUrl": "https://bucket/put?sig=1",
		"objectKey":    "uploads/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/put?sig=1", p.PutURL)
	assert.Equal(t, "uploads/abc", p.ObjectKey)
	assert.Empty(t, p.JobID)
}

func TestParsePresign_MissingPutURL(t *testing.T) {
	_, err := ParsePresign(map[string]interface{}{"get_url": "https://bucket/get"})
	assert.Error(t, err)
}

func TestExtractJobID(t *testing.T) {
	cases := map[string]string{
		`{"processingId": "p-1"}`:           "p-1",
		`{"jobId": "j-1"}`:                  "j-1",
		`{"id": "i-1"}`:                     "i-1",
		`{"job_id": "s-1"}`:                 "s-1",
		`{"processingId": "p-1", "id": ""}`: "p-1",
		`"bare-quoted-id"`:                  "bare-quoted-id",
		`bare-raw-id`:                       "bare-raw-id",
	}

	for body, want := range cases {
		got, err := ExtractJobID([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}
}

func TestExtractJobID_NoID(t *testing.T) {
	_, err := ExtractJobID([]byte(`{"something": "else"}`))
	assert.Error(t, err)

	_, err = ExtractJobID([]byte(`   `))
	assert.Error(t, err)
}

func TestContentTypeFromURL(t *testing.T) {
	assert.Equal(t, "application/pdf",
		ContentTypeFromURL("https://bucket/key?X-Amz-Signature=abc&content-type=application%2Fpdf"))
	assert.Equal(t, "text/plain",
		ContentTypeFromURL("https://bucket/key?Content-Type=text%2Fplain"))
	assert.Empty(t, ContentTypeFromURL("https://bucket/key?X-Amz-Signature=abc"))
	assert.Empty(t, ContentTypeFromURL("://not-a-url"))
}
