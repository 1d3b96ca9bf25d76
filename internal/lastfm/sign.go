package lastfm

import (
	"crypto/md5" //nolint:gosec // Last.fm api_sig is defined as MD5
	"encoding/hex"
	"sort"
	"strings"
)

// formatParam selects the response encoding and never takes part in signing.
const formatParam = "format"

// Sign computes the api_sig for a request. Keys other than "format" are
// sorted, concatenated as key+value without separators, suffixed with the
// shared secret and MD5 hashed.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == formatParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String())) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
