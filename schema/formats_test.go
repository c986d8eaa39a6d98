package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/flowdoc/schema"
)

func TestFormat_Validate(t *testing.T) {
	tests := []struct {
		format schema.Format
		value  string
		want   schema.FormatResult
	}{
		{schema.FormatDate, "2022-09-30", schema.FormatValid},
		{schema.FormatDate, "2022-02-30", schema.FormatInvalid},
		{schema.FormatDateTime, "2022-09-30T10:11:12.5Z", schema.FormatValid},
		{schema.FormatDateTime, "2022-09-30t10:11:12+01:00", schema.FormatValid},
		{schema.FormatDateTime, "2022-09-30", schema.FormatInvalid},
		{schema.FormatTime, "10:11:12Z", schema.FormatValid},
		{schema.FormatTime, "10:11", schema.FormatInvalid},
		{schema.FormatEmail, "joe@example.com", schema.FormatValid},
		{schema.FormatEmail, "Joe <joe@example.com>", schema.FormatInvalid},
		{schema.FormatHostname, "db-1.example.com", schema.FormatValid},
		{schema.FormatHostname, "-bad.example.com", schema.FormatInvalid},
		{schema.FormatIdnHostname, "例え.jp", schema.FormatUnsupported},
		{schema.FormatIPv4, "10.0.0.1", schema.FormatValid},
		{schema.FormatIPv4, "10.0.0.01", schema.FormatInvalid},
		{schema.FormatIPv6, "::1", schema.FormatValid},
		{schema.FormatIPv6, "10.0.0.1", schema.FormatInvalid},
		{schema.FormatMacAddr, "01:23:45:67:89:ab", schema.FormatValid},
		{schema.FormatMacAddr8, "01:23:45:67:89:ab", schema.FormatInvalid},
		{schema.FormatUUID, "d3b07384-d9a1-4d3b-9b2a-5c0b7a1e3f00", schema.FormatValid},
		{schema.FormatUUID, "d3b07384d9a14d3b9b2a5c0b7a1e3f00", schema.FormatInvalid},
		{schema.FormatDuration, "P3DT4H", schema.FormatValid},
		{schema.FormatDuration, "P", schema.FormatInvalid},
		{schema.FormatDuration, "PT", schema.FormatInvalid},
		{schema.FormatURI, "https://example.com/a?b#c", schema.FormatValid},
		{schema.FormatURI, "/relative", schema.FormatInvalid},
		{schema.FormatURIReference, "/relative", schema.FormatValid},
		{schema.FormatJSONPointer, "/a~1b/0", schema.FormatValid},
		{schema.FormatJSONPointer, "/a~2", schema.FormatInvalid},
		{schema.FormatRelativeJSONPointer, "1/a", schema.FormatValid},
		{schema.FormatRelativeJSONPointer, "0#", schema.FormatValid},
		{schema.FormatRelativeJSONPointer, "/a", schema.FormatInvalid},
		{schema.FormatRegex, "^a+$", schema.FormatValid},
		{schema.FormatRegex, "(", schema.FormatInvalid},
		{schema.FormatInteger, "-42", schema.FormatValid},
		{schema.FormatInteger, "4.2", schema.FormatInvalid},
		{schema.FormatNumber, "4.2e10", schema.FormatValid},
		{schema.FormatNumber, "NaN", schema.FormatValid},
		{schema.FormatNumber, "-Infinity", schema.FormatValid},
		{schema.FormatNumber, "1_000", schema.FormatInvalid},
		{schema.FormatNumber, "0x10", schema.FormatInvalid},
		{schema.FormatSHA256, "sha256:" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", schema.FormatValid},
		{schema.FormatSHA256, "sha256:0123", schema.FormatInvalid},
		{schema.Format("flavor"), "anything", schema.FormatValid},
	}
	for _, tt := range tests {
		t.Run(string(tt.format)+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.Validate(tt.value))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, schema.FormatInteger, schema.DetectFormat("123"))
	assert.Equal(t, schema.FormatNumber, schema.DetectFormat("1.5"))
	assert.Equal(t, schema.FormatDateTime, schema.DetectFormat("2022-09-30T10:11:12Z"))
	assert.Equal(t, schema.FormatDate, schema.DetectFormat("2022-09-30"))
	assert.Equal(t, schema.FormatUUID, schema.DetectFormat("d3b07384-d9a1-4d3b-9b2a-5c0b7a1e3f00"))
	assert.Equal(t, schema.Format(""), schema.DetectFormat("hello"))
}
