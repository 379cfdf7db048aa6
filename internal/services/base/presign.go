package base

import (
	"encoding/json"
	"net/url"
	"strings"

	"enrichment-gateway/internal/common/errors"
)

// Presign holds the fields of a presign response. The backing APIs are
// inconsistent about key naming and casing, so every known spelling is
// accepted.
type Presign struct {
	PutURL    string
	GetURL    string
	JobID     string
	ObjectKey string
}

// ParsePresign extracts the presign fields from a decoded response.
func ParsePresign(payload map[string]interface{}) (Presign, error) {
	p := Presign{
		PutURL:    stringField(payload, "put_url", "putUrl", "presignedUrl", "presigned_url"),
		GetURL:    stringField(payload, "get_url", "getUrl"),
		JobID:     stringField(payload, "job_id", "jobId"),
		ObjectKey: stringField(payload, "objectKey", "object_key"),
	}
	if p.PutURL == "" {
		return Presign{}, errors.InternalError("presign response missing upload URL", nil)
	}
	return p, nil
}

// ExtractJobID pulls the job identifier out of a submission response.
// Known shapes: a JSON object keyed by processingId, jobId, or id, or a
// bare string body (possibly JSON-quoted).
func ExtractJobID(body []byte) (string, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		if id := stringField(obj, "processingId", "jobId", "id", "job_id"); id != "" {
			return id, nil
		}
		return "", errors.InternalError("submission response carries no job id", nil)
	}

	var quoted string
	if err := json.Unmarshal(body, &quoted); err == nil && strings.TrimSpace(quoted) != "" {
		return strings.TrimSpace(quoted), nil
	}

	if id := strings.TrimSpace(string(body)); id != "" {
		return id, nil
	}
	return "", errors.InternalError("submission response carries no job id", nil)
}

// ContentTypeFromURL recovers the content type a presigned PUT URL was
// signed for, from its content-type query parameter. Empty when absent.
func ContentTypeFromURL(presignedURL string) string {
	u, err := url.Parse(presignedURL)
	if err != nil {
		return ""
	}
	for key, vals := range u.Query() {
		if strings.EqualFold(key, "content-type") && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func stringField(payload map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
