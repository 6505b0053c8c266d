package client

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Params holds query parameters for a table operation. Nil values are
// omitted; everything else is coerced to its string form. Each key appears
// at most once in the serialized query.
type Params map[string]any

// encode serializes the parameters into URL query values.
func (p Params) encode() url.Values {
	if len(p) == 0 {
		return nil
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		if p[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, coerceParam(p[k]))
	}
	return values
}

func coerceParam(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
