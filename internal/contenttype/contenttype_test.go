package contenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_DeclaredTypeWins(t *testing.T) {
	got := Detect([]byte("%PDF-1.7 ..."), "application/pdf")
	assert.Equal(t, "application/pdf", got)
}

func TestDetect_StripsParameters(t *testing.T) {
	got := Detect(nil, "text/plain; charset=utf-8")
	assert.Equal(t, "text/plain", got)
}

func TestDetect_SniffsWhenDeclaredGeneric(t *testing.T) {
	got := Detect([]byte(`{"key": "value"}`), "application/octet-stream")
	assert.Contains(t, got, "json")
}

func TestDetect_SniffsWhenDeclaredEmpty(t *testing.T) {
	got := Detect([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), "")
	assert.Equal(t, "application/pdf", got)
}

func TestDetect_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultType, Detect(nil, ""))
}

func TestDetectFromFilename(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectFromFilename("report.PDF"))
	assert.Equal(t, "text/plain", DetectFromFilename("notes.txt"))
	assert.Equal(t, DefaultType, DetectFromFilename("mystery.bin"))
	assert.Equal(t, DefaultType, DetectFromFilename("no-extension"))
}
