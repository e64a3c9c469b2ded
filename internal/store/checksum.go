package store

import (
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
)

// Checksum hashes the canonical JSON encoding of v. It is a debugging aid and
// plays no part in conflict detection. Values sonic cannot encode fall back
// to their Go-syntax representation.
func Checksum(v any) string {
	if v == nil {
		return ""
	}
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", v))
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
