package feed

import "github.com/hitoshi/ljfeed/internal/model"

const (
	// NoSubject は件名が空の記事に使うプレースホルダ。
	NoSubject = "(no subject)"
	// RestrictedMark は限定公開記事の件名の先頭に付ける記号。
	RestrictedMark = "⚠"
)

// Title は記事のタイトルを組み立てる。
//
//	本人のジャーナルへの投稿:  "{poster} / {subject}"
//	コミュニティ等への投稿:    "{poster} @ {journal} / {subject}"
//
// 限定公開の記事はsubjectの前に "⚠ " が付く。
func Title(e model.Entry) string {
	subject := e.Subject
	if subject == "" {
		subject = NoSubject
	}
	if !e.IsPublic() {
		subject = RestrictedMark + " " + subject
	}

	if e.PosterName == e.JournalName {
		return e.PosterName + " / " + subject
	}
	return e.PosterName + " @ " + e.JournalName + " / " + subject
}
