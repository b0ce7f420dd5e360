package enrichment

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// EncodeCursor turns the last seen asset id into a page token. The token is
// only an encoding, not a signature: clients can read and forge it, and the
// store treats it purely as an upper bound on ids.
func EncodeCursor(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeCursor parses a page token. An empty token means the first page (0).
func DecodeCursor(cursor string) (int64, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, nil
	}
	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if raw, err = enc.DecodeString(cursor); err == nil {
			break
		}
	}
	if err != nil {
		return 0, ErrInvalidCursor
	}
	s := string(raw)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != s {
		return 0, ErrInvalidCursor
	}
	return id, nil
}
