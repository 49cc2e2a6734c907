// Package model はドメインモデルを定義する。
package model

import "fmt"

// Variant は出力フィードの種別を表す。
// 種別ごとに記事の公開範囲によるフィルタが決まっている。
type Variant string

const (
	// VariantCombined は全記事を含むフィード。
	VariantCombined Variant = "combined"
	// VariantPublic は公開記事のみを含むフィード。
	VariantPublic Variant = "public"
	// VariantPrivate は限定公開記事のみを含むフィード。
	VariantPrivate Variant = "private"
)

// Match は記事がこの種別のフィードに含まれるかを判定する。
func (v Variant) Match(e Entry) bool {
	switch v {
	case VariantPublic:
		return e.IsPublic()
	case VariantPrivate:
		return !e.IsPublic()
	default:
		return true
	}
}

// Filter は種別に一致する記事だけを元の順序のまま返す。
func (v Variant) Filter(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if v.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// ParseVariant は文字列から種別を解析する。
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantCombined, VariantPublic, VariantPrivate:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown variant: %q", s)
	}
}

// Target は出力先パスとフィード種別の組を表す。
type Target struct {
	Variant Variant
	Path    string
}
