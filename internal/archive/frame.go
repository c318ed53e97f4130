package archive

import (
	"bytes"
	"regexp"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// framePrefix matches "window.YTD.<dotted-name>.part<N> = " with arbitrary
// whitespace (including newlines) around the assignment.
var framePrefix = regexp.MustCompile(`(?s)^\s*window\s*\.\s*YTD\s*\.\s*[A-Za-z0-9_]+\s*\.\s*part\d+\s*=\s*`)

// StripFramingPrefix isolates the "JavaScript-wrapped JSON" quirk of a
// shard from everything downstream: it strips a leading UTF-8 BOM (if
// present) and the "window.YTD.<type>.partN = " assignment prefix,
// returning the remaining bytes, which are expected to be a JSON value.
//
// If raw does not begin with the expected prefix after BOM-stripping, the
// entire (BOM-stripped) input is returned unchanged; ParseDir hands it to
// the JSON decoder as is, so input that is not the expected JSON array
// surfaces there as a MalformedJSON error for that shard.
func StripFramingPrefix(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if loc := framePrefix.FindIndex(raw); loc != nil {
		return raw[loc[1]:]
	}
	return raw
}
