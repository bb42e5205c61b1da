package sanitize

import (
	"strconv"
	"time"
)

// coerceString は任意の値を表示可能な文字列へ型強制する。
// nilおよび文字列化できない値は空文字列とする。
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		if val {
			return "true"
		}
		return ""
	default:
		return ""
	}
}

// stringOrEmpty は文字列のみを通し、それ以外を空文字列とする。
// coerceStringと異なり数値・真偽値も空文字列に丸める（検索条件向け）。
func stringOrEmpty(v any) string {
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

// coerceBool は任意の値を真偽値へ型強制する。
// bool以外の型はfalseとする。
func coerceBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// asNumber は値が数値である場合にfloat64として返す。
// encoding/jsonのデコード結果（float64）とGoネイティブのintの両方を受ける。
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// timestampLayouts はバックエンドが返すタイムスタンプ形式の候補。
// タイムゾーンなしのISO形式はPython製バックエンドのnaiveなdatetime出力。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp はタイムスタンプ値をパースする。
// 文字列でない、またはどの形式にも合致しない場合はfallbackを返す。
func parseTimestamp(v any, fallback time.Time) time.Time {
	str, ok := v.(string)
	if !ok || str == "" {
		return fallback
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t
		}
	}
	return fallback
}
