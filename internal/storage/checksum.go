package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var contentIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9\-]+`)

// BuildChecksum hashes the canonical form of every part into a stable hex
// digest. Raw bytes pass through, strings are UTF-8 encoded, anything else is
// serialized to deterministic JSON (encoding/json sorts map keys). Parts are
// joined with a NUL byte so ("ab","c") and ("a","bc") hash differently.
func BuildChecksum(parts ...any) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("at least one checksum part is required")
	}

	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		switch v := part.(type) {
		case []byte:
			h.Write(v)
		case string:
			h.Write([]byte(v))
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("checksum part %d is not serializable: %w", i, err)
			}
			h.Write(raw)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// BuildContentID builds the directory name of a content item from its type tag
// and defining parts. Every part is stringified and sanitized so the result is
// filesystem safe; identical logical inputs always yield the identical ID,
// which is what makes re-processing a natural no-op.
func BuildContentID(itemType string, parts ...any) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("at least one content ID part is required")
	}

	all := make([]string, 0, len(parts)+1)
	for _, part := range append([]any{itemType}, parts...) {
		s := fmt.Sprintf("%v", part)
		all = append(all, contentIDSanitizer.ReplaceAllString(s, "-"))
	}

	return strings.Join(all, "_"), nil
}
