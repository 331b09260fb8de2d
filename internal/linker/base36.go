package linker

import (
	"fmt"
	"strconv"
	"strings"
)

// decodeFullnameID turns a provider fullname id into its numeric form. The
// provider encodes ids in base36 and may prefix them with the account thing
// type, as in "t2_e69d6".
func decodeFullnameID(raw string) (int64, error) {
	id := strings.TrimPrefix(strings.TrimSpace(raw), "t2_")
	if id == "" {
		return 0, fmt.Errorf("empty provider id")
	}
	n, err := strconv.ParseInt(strings.ToLower(id), 36, 64)
	if err != nil {
		return 0, fmt.Errorf("decode provider id %q: %w", raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("provider id %q decodes to non-positive value", raw)
	}
	return n, nil
}
