// Package model はドメインモデルを定義する。
package model

import "time"

// SecurityPublic は公開記事を表すsecurity値。
const SecurityPublic = "public"

// Entry はfriendspageから取得したジャーナル記事を表す。
// フィード生成処理からは読み取り専用として扱う。
type Entry struct {
	PosterName  string // 投稿者の表示名
	JournalName string // 投稿先ジャーナルの表示名（コミュニティ投稿ではPosterNameと異なる）
	JournalURL  string // 投稿先ジャーナルのベースURL
	DItemID     string // ジャーナル内で一意な記事ID（パーマリンク生成に使用）
	Logtime     int64  // 投稿時刻（Unix秒、UTC）
	Subject     string // 件名（空の場合あり）
	Event       string // 本文（LJ独自タグを含む未加工のマークアップ）
	Security    string // 公開範囲。"public"以外は限定公開
}

// FriendsPage は1回の取得で得られた記事の集合を表す。
type FriendsPage struct {
	Entries []Entry
}

// IsPublic は公開記事かどうかを返す。
func (e Entry) IsPublic() bool {
	return e.Security == SecurityPublic
}

// LoggedAt は投稿時刻をUTCのtime.Timeとして返す。
func (e Entry) LoggedAt() time.Time {
	return time.Unix(e.Logtime, 0).UTC()
}

// Permalink は記事のパーマリンクを返す。
// Atomのentry idとalternateリンクの両方に使用する。
func (e Entry) Permalink() string {
	return e.JournalURL + "/" + e.DItemID + ".html"
}

// Validate は必須フィールドの欠落を検証する。
// Subject と Event は空文字列を許容する。
func (e Entry) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"postername", e.PosterName},
		{"journalname", e.JournalName},
		{"journalurl", e.JournalURL},
		{"ditemid", e.DItemID},
		{"security", e.Security},
	}
	for _, r := range required {
		if r.value == "" {
			return NewMalformedEntryError(r.field, "empty value")
		}
	}
	if e.Logtime < 0 {
		return NewMalformedEntryError("logtime", "negative timestamp")
	}
	return nil
}
