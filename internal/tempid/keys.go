package tempid

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// StaticKeys is an ordered key ring loaded once from configuration. Keys are
// tried in slice order, so the current key should come first.
type StaticKeys [][]byte

// Keys implements validation.KeyProvider.
func (k StaticKeys) Keys(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]byte, len(k))
	copy(out, k)
	return out, nil
}

// ParseKeys decodes base64 keys, keeping their order.
func ParseKeys(encoded []string) (StaticKeys, error) {
	keys := make(StaticKeys, 0, len(encoded))
	for i, s := range encoded {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("key %d: want %d bytes, got %d", i, KeySize, len(key))
		}
		keys = append(keys, key)
	}
	return keys, nil
}
