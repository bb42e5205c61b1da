package sanitize

import (
	"strings"
	"testing"
)

// TestExcerpt_PlainTextPassesThrough はプレーンテキストがそのまま通ることをテストする。
func TestExcerpt_PlainTextPassesThrough(t *testing.T) {
	got := Excerpt("You are stronger than you think.", 140)
	if got != "You are stronger than you think." {
		t.Errorf("Excerpt = %q, want unchanged input", got)
	}
}

// TestExcerpt_StripsHTMLTags はHTMLタグが除去されることをテストする。
func TestExcerpt_StripsHTMLTags(t *testing.T) {
	got := Excerpt("<p>One step <em>at a time</em></p>", 140)
	if strings.ContainsAny(got, "<>") {
		t.Errorf("Excerpt = %q, タグが残ってはならない", got)
	}
	if !strings.Contains(got, "One step") || !strings.Contains(got, "at a time") {
		t.Errorf("Excerpt = %q, テキストが失われている", got)
	}
}

// TestExcerpt_ExcludesScriptContent はscript要素の中身が除外されることをテストする。
func TestExcerpt_ExcludesScriptContent(t *testing.T) {
	got := Excerpt("<p>hello</p><script>alert('x')</script><p>world</p>", 140)
	if strings.Contains(got, "alert") {
		t.Errorf("Excerpt = %q, scriptの中身が含まれてはならない", got)
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("Excerpt = %q, 通常テキストは保持されるべき", got)
	}
}

// TestExcerpt_NormalizesWhitespace は連続する空白が正規化されることをテストする。
func TestExcerpt_NormalizesWhitespace(t *testing.T) {
	got := Excerpt("a \n\n  b\t\tc", 140)
	if got != "a b c" {
		t.Errorf("Excerpt = %q, want %q", got, "a b c")
	}
}

// TestExcerpt_TruncatesAtRuneBoundary はルーン境界で切り詰められることをテストする。
func TestExcerpt_TruncatesAtRuneBoundary(t *testing.T) {
	got := Excerpt("あいうえおかきくけこ", 5)
	if got != "あいうえお…" {
		t.Errorf("Excerpt = %q, want %q", got, "あいうえお…")
	}
}

// TestExcerpt_EmptyInput は空入力に空文字列を返すことをテストする。
func TestExcerpt_EmptyInput(t *testing.T) {
	if got := Excerpt("", 140); got != "" {
		t.Errorf("Excerpt(\"\") = %q, want empty", got)
	}
}

// TestExcerpt_MalformedHTMLNeverPanics は壊れたHTMLでもpanicしないことをテストする。
func TestExcerpt_MalformedHTMLNeverPanics(t *testing.T) {
	inputs := []string{
		"<p><p><p>unclosed",
		"<<<>>>",
		"<script>never closed",
		"text with < and > but no tags",
	}
	for _, in := range inputs {
		_ = Excerpt(in, 50)
	}
}
