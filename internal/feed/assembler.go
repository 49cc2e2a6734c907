// Package feed は記事の集合からAtom 1.0フィード文書を組み立てる。
package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ljfeed/internal/markup"
	"github.com/hitoshi/ljfeed/internal/model"
)

// TimeFormat はAtomの日時表記（UTC、秒精度）。
const TimeFormat = "2006-01-02T15:04:05Z"

// Namespace はAtom 1.0の名前空間。
const Namespace = "http://www.w3.org/2005/Atom"

// BodyRewriter は記事本文の書き換えインターフェース。
type BodyRewriter interface {
	Rewrite(body string) string
}

// IDGenerator はフィードIDに使うUUID文字列を生成する。
// テストでは固定値を返す関数に差し替える。
type IDGenerator func() string

// Document は組み立て済みのフィード文書を表す。
type Document struct {
	Text    string    // Atom XML文書
	Updated time.Time // 鮮度タイムスタンプ（記事の最大投稿時刻）
	Entries int       // 含まれる記事数
}

// Assembler はAtomフィード文書を組み立てる。
type Assembler struct {
	rewriter BodyRewriter
	newID    IDGenerator
}

// NewAssembler はAssemblerの新しいインスタンスを生成する。
// rewriterがnilの場合はサニタイズ無しのmarkup.Rewriterを、
// newIDがnilの場合はuuid.NewStringを使用する。
func NewAssembler(rewriter BodyRewriter, newID IDGenerator) *Assembler {
	if rewriter == nil {
		rewriter = markup.NewRewriter(nil)
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Assembler{
		rewriter: rewriter,
		newID:    newID,
	}
}

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title   string      `xml:"title"`
	Updated string      `xml:"updated"`
	Author  atomPerson  `xml:"author"`
	ID      string      `xml:"id"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Link    atomLink   `xml:"link"`
	ID      string     `xml:"id"`
	Updated string     `xml:"updated"`
	Author  atomPerson `xml:"author"`
	Summary atomText   `xml:"summary"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomText struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

// FormatTime はUnix秒をAtomの日時表記に変換する。
func FormatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(TimeFormat)
}

// Freshness は記事の最大投稿時刻を返す。
// 記事が0件の場合はEMPTY_ENTRY_COLLECTIONエラーを返す。
func Freshness(entries []model.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, model.NewEmptyEntryCollectionError()
	}
	latest := entries[0].Logtime
	for _, e := range entries[1:] {
		if e.Logtime > latest {
			latest = e.Logtime
		}
	}
	return latest, nil
}

// Assemble は記事を与えられた順序のままAtom文書に変換する。
// 全記事を検証してから組み立てるため、不正な記事が1件でもあれば文書は生成されない。
// 本文の書き換え後、全ての値はXMLエンコーダによってエスケープされる。
func (a *Assembler) Assemble(owner string, entries []model.Entry) (*Document, error) {
	latest, err := Freshness(entries)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry #%d: %w", i, err)
		}
	}

	doc := atomFeed{
		Title:   owner + "'s friends",
		Updated: FormatTime(latest),
		Author:  atomPerson{Name: owner + " and friends"},
		ID:      "urn:uuid:" + a.newID(),
		Entries: make([]atomEntry, 0, len(entries)),
	}

	for _, e := range entries {
		link := e.Permalink()
		doc.Entries = append(doc.Entries, atomEntry{
			Title:   Title(e),
			Link:    atomLink{Href: link, Rel: "alternate"},
			ID:      link,
			Updated: e.LoggedAt().Format(TimeFormat),
			Author:  atomPerson{Name: e.PosterName},
			Summary: atomText{Type: "html", Body: a.rewriter.Rewrite(e.Event)},
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode atom feed: %w", err)
	}

	return &Document{
		Text:    `<?xml version="1.0" encoding="utf-8"?>` + "\n" + string(body) + "\n",
		Updated: time.Unix(latest, 0).UTC(),
		Entries: len(entries),
	}, nil
}
