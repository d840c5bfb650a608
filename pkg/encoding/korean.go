// Package encoding decodes the EUC-KR names found in GRF tables and binary
// model formats.
package encoding

import (
	"bytes"
	"path"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 decodes EUC-KR bytes. Pure ASCII is returned unchanged, and
// bytes that do not decode are returned as-is.
func EUCKRToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR encodes s as EUC-KR, falling back to the UTF-8 bytes for text
// outside the character set.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// NormalizeGRFPath turns an archive or model reference into the lookup key
// used across the module: forward slashes, lower case, no "./" segments.
func NormalizeGRFPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ToLower(p)
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if strings.HasPrefix(p, "/") {
		return cleaned
	}
	return strings.TrimPrefix(cleaned, "./")
}

// FixedString decodes a NUL-padded EUC-KR field of a binary record.
func FixedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
