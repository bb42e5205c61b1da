package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// excerptMaxLen はメッセージプレビューの最大文字数（rune単位）。
const excerptMaxLen = 140

// Excerpt はメッセージ本文からプレーンテキストのプレビューを導出する。
// HTMLが含まれる場合はタグを除去してテキストノードのみを連結し、
// プレーンテキストはそのまま通す。空白の連続は1つに正規化する。
// maxを超える場合はルーン境界で切り詰めて"…"を付加する。
func Excerpt(body string, max int) string {
	text := body
	if strings.ContainsAny(body, "<>") {
		text = extractText(body)
	}

	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if max > 0 && len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return text
}

// extractText はHTML断片からテキストノードのみを抽出する。
// パース不能な入力でもhtml.Tokenizerはエラーを返さず読み進めるため、
// この関数は全域的である。script/style要素の中身は除外する。
func extractText(fragment string) string {
	var sb strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOFを含むあらゆる終端で抽出済みテキストを返す
			return sb.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedElement(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedElement(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

// isSkippedElement はテキスト抽出から除外する要素かを判定する。
func isSkippedElement(name string) bool {
	return name == "script" || name == "style"
}
