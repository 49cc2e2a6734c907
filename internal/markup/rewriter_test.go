package markup

import (
	"strings"
	"testing"
)

// TestRewrite_LineBreaks は改行の全置換/全保持ヒューリスティックを検証する。
func TestRewrite_LineBreaks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "brが無ければ全ての改行を置換する",
			input: "line1\nline2\n\nline3",
			want:  "line1<br />line2<br /><br />line3",
		},
		{
			name:  "brが1つでもあれば改行はそのまま残す",
			input: "line1<br />line2\nline3\n",
			want:  "line1<br />line2\nline3\n",
		},
		{
			name:  "改行の無い本文は変化しない",
			input: "plain text",
			want:  "plain text",
		},
		{
			name:  "<br>（スラッシュ無し）は明示的な改行タグとみなさない",
			input: "a<br>b\nc",
			want:  "a<br>b<br />c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rewrite(tt.input); got != tt.want {
				t.Errorf("Rewrite(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestRewrite_LJCut はlj-cutタグが空白に置換されることを検証する。
func TestRewrite_LJCut(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"before<lj-cut>after", "before after"},
		{"a<lj-cut text=\"more...\">b</lj-cut>c", "a b c"},
		{"<lj-cut/>x", " x"},
	}

	for _, tt := range tests {
		if got := Rewrite(tt.input); got != tt.want {
			t.Errorf("Rewrite(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestRewrite_UserTag はlj userタグがリンクに置換されることを検証する。
func TestRewrite_UserTag(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:  "アンダースコアはハイフンに変換される",
			input: `see <lj user="a_b"> here`,
			wantContains: []string{
				`<a href="http://a-b.livejournal.com/">`,
				`userinfo.gif"/>a-b</a>`,
				"see ",
				" here",
			},
		},
		{
			name:         "引用符なし",
			input:        `<lj user=bob>`,
			wantContains: []string{`<a href="http://bob.livejournal.com/">`, ">bob</a>"},
		},
		{
			name:         "余分な属性は無視される",
			input:        `<lj user="carol" site="livejournal.com">`,
			wantContains: []string{`<a href="http://carol.livejournal.com/">`, ">carol</a>"},
		},
		{
			name:         "複数のタグ",
			input:        `<lj user="x-1"> and <lj user="y_2">`,
			wantContains: []string{"http://x-1.livejournal.com/", "http://y-2.livejournal.com/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rewrite(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Rewrite(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
			if strings.Contains(got, "<lj") {
				t.Errorf("Rewrite(%q) = %q, residual <lj tag", tt.input, got)
			}
		})
	}
}

// TestRewrite_UserTagExact はユーザーリンクの完全な出力を検証する。
func TestRewrite_UserTagExact(t *testing.T) {
	got := Rewrite(`<lj user="some_user">`)
	want := `<a href="http://some-user.livejournal.com/"><img src="http://l-stat.livejournal.com/img/userinfo.gif"/>some-user</a>`
	if got != want {
		t.Errorf("Rewrite() = %q, want %q", got, want)
	}
}

// TestRewrite_CommunityTag はlj commタグがコミュニティリンクに置換されることを検証する。
func TestRewrite_CommunityTag(t *testing.T) {
	got := Rewrite(`join <lj comm="ru_travel">!`)
	want := `join <a href="http://community.livejournal.com/ru_travel/"><img src="http://l-stat.livejournal.com/img/community.gif"/></a>!`
	if got != want {
		t.Errorf("Rewrite() = %q, want %q", got, want)
	}
	if strings.Contains(got, "<lj") {
		t.Errorf("residual <lj tag in %q", got)
	}
}

// TestRewrite_UnsupportedTagsUntouched は対象外のタグや属性名が変更されないことを検証する。
func TestRewrite_UnsupportedTagsUntouched(t *testing.T) {
	inputs := []string{
		`<lj USER="bob">`,
		`<lj name="bob">`,
		`<lj user="">`,
		`<lj-poll id="1">`,
	}
	for _, in := range inputs {
		if got := Rewrite(in); got != in {
			t.Errorf("Rewrite(%q) = %q, want unchanged", in, got)
		}
	}
}

// TestRewrite_RuleOrder は改行置換がタグ書き換えより先に行われることを検証する。
// lj userの展開結果に"<br />"は含まれないため、後続の判定には影響しない。
func TestRewrite_RuleOrder(t *testing.T) {
	got := Rewrite("<lj user=\"a\">\n<lj-cut>\ntext")
	want := `<a href="http://a.livejournal.com/"><img src="http://l-stat.livejournal.com/img/userinfo.gif"/>a</a><br /> <br />text`
	if got != want {
		t.Errorf("Rewrite() = %q, want %q", got, want)
	}
}

type upperSanitizer struct{ calls int }

func (s *upperSanitizer) Sanitize(in string) string {
	s.calls++
	return strings.ToUpper(in)
}

// TestRewriter_AppliesSanitizerLast はサニタイザが書き換え後に適用されることを検証する。
func TestRewriter_AppliesSanitizerLast(t *testing.T) {
	s := &upperSanitizer{}
	r := NewRewriter(s)

	got := r.Rewrite(`<lj comm="c">`)
	if s.calls != 1 {
		t.Fatalf("sanitizer calls = %d, want 1", s.calls)
	}
	if !strings.Contains(got, "HTTP://COMMUNITY.LIVEJOURNAL.COM/C/") {
		t.Errorf("Rewrite() = %q, expected sanitized community link", got)
	}
}

// TestRewriter_NilSanitizer はサニタイザ未設定時にRewriteと同じ結果になることを検証する。
func TestRewriter_NilSanitizer(t *testing.T) {
	in := "a\nb <lj user=\"z\">"
	if got, want := NewRewriter(nil).Rewrite(in), Rewrite(in); got != want {
		t.Errorf("Rewriter.Rewrite() = %q, want %q", got, want)
	}
}
