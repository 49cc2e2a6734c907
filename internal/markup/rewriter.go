// Package markup はLiveJournal記事本文の独自タグを可搬なHTMLに書き換える。
//
// 対象はlj-cut、lj user、lj commの3種類のタグと改行のみで、
// 任意のHTMLパースは行わない。出力はXMLエスケープ前のHTML断片である。
package markup

import (
	"regexp"
	"strings"
)

const (
	// lineBreak は改行マークアップ。
	lineBreak = "<br />"

	userIcon      = `<img src="http://l-stat.livejournal.com/img/userinfo.gif"/>`
	communityIcon = `<img src="http://l-stat.livejournal.com/img/community.gif"/>`
)

var (
	cutTag       = regexp.MustCompile(`</?lj-cut[^>]*>`)
	userTag      = regexp.MustCompile(`<lj\s+user="?([a-zA-Z0-9_-]+)"?.*?>`)
	communityTag = regexp.MustCompile(`<lj\s+comm="?([a-zA-Z0-9_-]+)"?.*?>`)
)

// Sanitizer は書き換え後のHTMLを後処理するインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Rewriter は記事本文の書き換えを行う。
// sanitizerがnilの場合は書き換え結果をそのまま返す。
type Rewriter struct {
	sanitizer Sanitizer
}

// NewRewriter はRewriterの新しいインスタンスを生成する。
func NewRewriter(sanitizer Sanitizer) *Rewriter {
	return &Rewriter{sanitizer: sanitizer}
}

// Rewrite は本文を書き換える。sanitizerが設定されていれば最後に適用する。
func (r *Rewriter) Rewrite(body string) string {
	out := Rewrite(body)
	if r != nil && r.sanitizer != nil {
		out = r.sanitizer.Sanitize(out)
	}
	return out
}

// Rewrite は本文に以下の規則を順に適用する。
//  1. 本文に "<br />" が1つも無ければ、全ての改行を "<br />" に置換する
//  2. lj-cutの開始・終了タグを空白1文字に置換する
//  3. <lj user="NAME"> をユーザーページへのリンクに置換する
//  4. <lj comm="NAME"> をコミュニティページへのリンクに置換する
func Rewrite(body string) string {
	if !strings.Contains(body, lineBreak) {
		body = strings.ReplaceAll(body, "\n", lineBreak)
	}

	body = cutTag.ReplaceAllLiteralString(body, " ")

	body = userTag.ReplaceAllStringFunc(body, func(tag string) string {
		name := userTag.FindStringSubmatch(tag)[1]
		return UserLink(name)
	})

	body = communityTag.ReplaceAllStringFunc(body, func(tag string) string {
		name := communityTag.FindStringSubmatch(tag)[1]
		return CommunityLink(name)
	})

	return body
}

// UserLink はユーザー参照のアンカーを返す。
// ユーザー名のアンダースコアはハイフンに変換する（LJのホスト名規則）。
func UserLink(name string) string {
	host := strings.ReplaceAll(name, "_", "-")
	return `<a href="http://` + host + `.livejournal.com/">` + userIcon + host + `</a>`
}

// CommunityLink はコミュニティ参照のアンカーを返す。表示テキストは持たない。
func CommunityLink(name string) string {
	return `<a href="http://community.livejournal.com/` + name + `/">` + communityIcon + `</a>`
}
