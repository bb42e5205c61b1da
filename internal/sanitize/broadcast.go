package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

// BroadcastCleanerService は管理コンソールから送信するブロードキャスト本文の
// HTMLサニタイズ機能のインターフェースを定義する。
// バックエンドへ中継する前に適用し、XSSとなりうるマークアップを除去する。
type BroadcastCleanerService interface {
	// Clean はHTML本文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(rawHTML string) string
}

// broadcastCleaner はBroadcastCleanerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type broadcastCleaner struct {
	policy *bluemonday.Policy
}

// NewBroadcastCleaner はBroadcastCleanerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, strong, em
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: target="_blank" と rel="noreferrer noopener" を自動付与
func NewBroadcastCleaner() *broadcastCleaner {
	p := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	// aタグの設定:
	// - href属性を許可、相対URLは不許可
	// - target="_blank"とrel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &broadcastCleaner{policy: p}
}

// Clean はHTML本文をサニタイズして安全なHTMLを返す。
func (c *broadcastCleaner) Clean(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return c.policy.Sanitize(rawHTML)
}
