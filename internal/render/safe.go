// Package render は描画直前の最終防衛線となる表示用ヘルパーを提供する。
//
// サニタイズ層をすり抜けた未知の形の値でも、テキスト描画箇所へ
// 生のオブジェクトを渡さないことを保証する。すべての関数は全域的であり、
// あらゆる入力に対して文字列を返し、決してpanicしない。
package render

import (
	"encoding/json"
	"strconv"

	"github.com/hitoshi/tend/internal/model"
)

// dumpMaxLen はオブジェクトをJSONダンプする際の最大文字数。
const dumpMaxLen = 50

// SafeString は未知の形の値を表示用文字列へ変換する。
// nilはfallback、文字列はそのまま、数値・真偽値は文字列化する。
// オブジェクトはvalue/name/textのうち最初に見つかった文字列フィールドを採用し、
// いずれも無ければ50文字以内のJSONダンプ、それも不可ならfallbackを返す。
func SafeString(v any, fallback string) string {
	switch val := v.(type) {
	case nil:
		return fallback
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		if s, ok := stringField(val, "value", "name", "text"); ok {
			return s
		}
		return dumpJSON(val, fallback)
	default:
		return dumpJSON(val, fallback)
	}
}

// SafeSelectValue は選択コンポーネント向けに未知の形の値から文字列を取り出す。
// SafeStringに加えてid・timeZoneフィールドを認識し、上流ライブラリの
// 不具合によるuse_default_config/configキー付きオブジェクトにも防御的に対応する。
func SafeSelectValue(v any, fallback string) string {
	switch val := v.(type) {
	case nil:
		return fallback
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		if s, ok := stringField(val, "value", "name", "text", "id", "timeZone"); ok {
			return s
		}
		// use_default_config/configキーを持つオブジェクトは上流ライブラリの
		// 生成物。意味のある値が取れなければfallbackへ退化させる。
		if _, hasDefault := val["use_default_config"]; hasDefault {
			return fallback
		}
		if _, hasConfig := val["config"]; hasConfig {
			return fallback
		}
		return fallback
	default:
		return fallback
	}
}

// SafePersonalityValue は語り口の表示名を取り出す。
// nilや取り出せない形の値には"Unknown"を返す。
func SafePersonalityValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "Unknown"
	case string:
		return val
	case *model.Personality:
		if val == nil || val.Value == "" {
			return "Unknown"
		}
		return val.Value
	case model.Personality:
		if val.Value == "" {
			return "Unknown"
		}
		return val.Value
	case map[string]any:
		if s, ok := stringField(val, "value", "name"); ok && s != "" {
			return s
		}
		return "Unknown"
	default:
		return "Unknown"
	}
}

// stringField はkeysの順にオブジェクトを調べ、最初に見つかった
// 文字列フィールドの値を返す。
func stringField(obj map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

// dumpJSON は値を50文字以内のJSON文字列へダンプする。デバッグ表示用。
// マーシャルできない値にはfallbackを返す。
func dumpJSON(v any, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	s := string(data)
	if len(s) > dumpMaxLen {
		return s[:dumpMaxLen]
	}
	return s
}
