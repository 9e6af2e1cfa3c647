// FILE: src/internal/transform/funcs.go
package transform

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"segbridge/src/internal/format"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ISO8601Layout renders an explicit numeric offset, e.g. 2022-02-01T00:05:11+00:00.
const ISO8601Layout = "2006-01-02T15:04:05-07:00"

var builtins = map[string]Func{
	"ms_to_iso8601": msToISO8601,
	"format_date":   formatDate,
	"hash_event":    hashEvent,
	"uuid5":         uuid5,
	"lower":         caseFunc(func() cases.Caser { return cases.Lower(language.Und) }),
	"upper":         caseFunc(func() cases.Caser { return cases.Upper(language.Und) }),
	"title":         caseFunc(func() cases.Caser { return cases.Title(language.Und) }),
	"ucfirst":       ucfirst,
	"string":        toString,
}

// msToISO8601 converts a millisecond epoch to an ISO-8601 string in UTC.
// The millisecond remainder is truncated.
func msToISO8601(v any) (any, bool) {
	ms, ok := toInt64(v)
	if !ok {
		return nil, false
	}
	return formatMillis(ms), true
}

// formatMillis drops sub-second precision toward zero, so -1ms is the
// epoch itself rather than the second before it.
func formatMillis(ms int64) string {
	return time.Unix(ms/1000, 0).UTC().Format(ISO8601Layout)
}

// formatDate accepts seconds or milliseconds. Values longer than ten digits
// are treated as milliseconds.
func formatDate(v any) (any, bool) {
	n, ok := toInt64(v)
	if !ok {
		return nil, false
	}
	digits := len(strconv.FormatInt(absInt64(n), 10))
	if digits > 10 {
		return formatMillis(n), true
	}
	return time.Unix(n, 0).UTC().Format(ISO8601Layout), true
}

// hashEvent digests the compact JSON form of a value.
func hashEvent(v any) (any, bool) {
	data, err := format.MarshalCompact(v)
	if err != nil {
		return nil, false
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), true
}

// uuid5 derives a name-based UUID from the compact JSON form of a value.
func uuid5(v any) (any, bool) {
	data, err := format.MarshalCompact(v)
	if err != nil {
		return nil, false
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String(), true
}

// Casers hold state and are built per call.
func caseFunc(newCaser func() cases.Caser) Func {
	return func(v any) (any, bool) {
		s, ok := v.(string)
		if !ok {
			return v, true
		}
		return newCaser().String(s), true
	}
}

func ucfirst(v any) (any, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return v, true
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + s[size:], true
}

func toString(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case map[string]any, []any:
		return nil, false
	default:
		return fmt.Sprint(t), true
	}
}

// toInt64 coerces numeric-like values. Fractions are truncated.
func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int64(f), true
		}
	case float64:
		if !math.IsInf(t, 0) && !math.IsNaN(t) {
			return int64(t), true
		}
	case float32:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int64(f), true
		}
	}
	return 0, false
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
