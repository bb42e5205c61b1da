package render

import (
	"strings"
	"testing"

	"github.com/hitoshi/tend/internal/model"
)

// --- SafeString のテスト ---

// TestSafeString_NilReturnsFallback はnilにフォールバックを返すことをテストする。
func TestSafeString_NilReturnsFallback(t *testing.T) {
	if got := SafeString(nil, "fb"); got != "fb" {
		t.Errorf("SafeString(nil) = %q, want %q", got, "fb")
	}
}

// TestSafeString_StringPassesThrough は文字列がそのまま返ることをテストする。
func TestSafeString_StringPassesThrough(t *testing.T) {
	if got := SafeString("hello", ""); got != "hello" {
		t.Errorf("SafeString = %q, want %q", got, "hello")
	}
}

// TestSafeString_NumberAndBool は数値と真偽値が文字列化されることをテストする。
func TestSafeString_NumberAndBool(t *testing.T) {
	if got := SafeString(42.0, ""); got != "42" {
		t.Errorf("SafeString(42.0) = %q, want %q", got, "42")
	}
	if got := SafeString(3.5, ""); got != "3.5" {
		t.Errorf("SafeString(3.5) = %q, want %q", got, "3.5")
	}
	if got := SafeString(true, ""); got != "true" {
		t.Errorf("SafeString(true) = %q, want %q", got, "true")
	}
}

// TestSafeString_ObjectWithStringFields はvalue/name/textの優先順をテストする。
func TestSafeString_ObjectWithStringFields(t *testing.T) {
	obj := map[string]any{"value": "v", "name": "n", "text": "t"}
	if got := SafeString(obj, ""); got != "v" {
		t.Errorf("valueが優先されるべき: got %q", got)
	}

	obj = map[string]any{"name": "n", "text": "t"}
	if got := SafeString(obj, ""); got != "n" {
		t.Errorf("nameが次点であるべき: got %q", got)
	}

	obj = map[string]any{"text": "t"}
	if got := SafeString(obj, ""); got != "t" {
		t.Errorf("textが最後であるべき: got %q", got)
	}
}

// TestSafeString_ObjectWithoutKnownFieldsDumpsJSON は未知オブジェクトがJSONダンプされることをテストする。
func TestSafeString_ObjectWithoutKnownFieldsDumpsJSON(t *testing.T) {
	got := SafeString(map[string]any{"foo": "bar"}, "fb")
	if !strings.Contains(got, "foo") {
		t.Errorf("SafeString = %q, JSONダンプを含むべき", got)
	}
	if len(got) > 50 {
		t.Errorf("ダンプは50文字以内であるべき: len=%d", len(got))
	}
}

// TestSafeString_LongObjectDumpTruncated は長いダンプが切り詰められることをテストする。
func TestSafeString_LongObjectDumpTruncated(t *testing.T) {
	obj := map[string]any{"key": strings.Repeat("x", 200)}
	got := SafeString(obj, "")
	if len(got) != 50 {
		t.Errorf("len = %d, want 50", len(got))
	}
}

// TestSafeString_UnmarshalableReturnsFallback はマーシャル不能な値にフォールバックを返すことをテストする。
func TestSafeString_UnmarshalableReturnsFallback(t *testing.T) {
	if got := SafeString(make(chan int), "fb"); got != "fb" {
		t.Errorf("SafeString(chan) = %q, want %q", got, "fb")
	}
}

// --- SafeSelectValue のテスト ---

// TestSafeSelectValue_RecognizesIDAndTimeZone はid・timeZoneフィールドを認識することをテストする。
func TestSafeSelectValue_RecognizesIDAndTimeZone(t *testing.T) {
	if got := SafeSelectValue(map[string]any{"id": "opt-1"}, ""); got != "opt-1" {
		t.Errorf("SafeSelectValue = %q, want %q", got, "opt-1")
	}
	if got := SafeSelectValue(map[string]any{"timeZone": "Asia/Tokyo"}, ""); got != "Asia/Tokyo" {
		t.Errorf("SafeSelectValue = %q, want %q", got, "Asia/Tokyo")
	}
}

// TestSafeSelectValue_ConfigArtifactFallsBack はuse_default_config付きオブジェクトが
// フォールバックへ退化することをテストする。
func TestSafeSelectValue_ConfigArtifactFallsBack(t *testing.T) {
	obj := map[string]any{"use_default_config": true, "config": map[string]any{}}
	if got := SafeSelectValue(obj, "fb"); got != "fb" {
		t.Errorf("SafeSelectValue = %q, want %q", got, "fb")
	}

	// 意味のあるフィールドがあればそちらを優先する
	obj = map[string]any{"use_default_config": true, "name": "real"}
	if got := SafeSelectValue(obj, "fb"); got != "real" {
		t.Errorf("SafeSelectValue = %q, want %q", got, "real")
	}
}

// TestSafeSelectValue_TotalOverWeirdInputs は異常入力でも必ず文字列を返すことをテストする。
func TestSafeSelectValue_TotalOverWeirdInputs(t *testing.T) {
	inputs := []any{nil, []any{1.0}, map[string]any{"value": 42.0}, struct{}{}}
	for _, v := range inputs {
		_ = SafeSelectValue(v, "fb")
	}
}

// --- SafePersonalityValue のテスト ---

// TestSafePersonalityValue_NilReturnsUnknown はnilに"Unknown"を返すことをテストする。
func TestSafePersonalityValue_NilReturnsUnknown(t *testing.T) {
	if got := SafePersonalityValue(nil); got != "Unknown" {
		t.Errorf("SafePersonalityValue(nil) = %q, want %q", got, "Unknown")
	}
	var p *model.Personality
	if got := SafePersonalityValue(p); got != "Unknown" {
		t.Errorf("SafePersonalityValue(nil *Personality) = %q, want %q", got, "Unknown")
	}
}

// TestSafePersonalityValue_StringAndStruct は文字列と構造体の両対応をテストする。
func TestSafePersonalityValue_StringAndStruct(t *testing.T) {
	if got := SafePersonalityValue("Rocky"); got != "Rocky" {
		t.Errorf("SafePersonalityValue = %q, want %q", got, "Rocky")
	}
	if got := SafePersonalityValue(&model.Personality{Value: "coach"}); got != "coach" {
		t.Errorf("SafePersonalityValue = %q, want %q", got, "coach")
	}
	if got := SafePersonalityValue(&model.Personality{}); got != "Unknown" {
		t.Errorf("空のValueは\"Unknown\"となるべき: got %q", got)
	}
}

// TestSafePersonalityValue_MapUnwrapsValueOrName はマップからvalue/nameを取り出すことをテストする。
func TestSafePersonalityValue_MapUnwrapsValueOrName(t *testing.T) {
	if got := SafePersonalityValue(map[string]any{"value": "stoic"}); got != "stoic" {
		t.Errorf("SafePersonalityValue = %q, want %q", got, "stoic")
	}
	if got := SafePersonalityValue(map[string]any{"name": "mentor"}); got != "mentor" {
		t.Errorf("SafePersonalityValue = %q, want %q", got, "mentor")
	}
	if got := SafePersonalityValue(map[string]any{"id": "p1"}); got != "Unknown" {
		t.Errorf("SafePersonalityValue = %q, want %q", got, "Unknown")
	}
}
