package ljclient

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Fault はXML-RPCのfault応答を表す。
type Fault struct {
	Code   int64
	String string
}

// Error はerrorインターフェースを実装する。
func (f *Fault) Error() string {
	return fmt.Sprintf("xml-rpc fault %d: %s", f.Code, f.String)
}

// --- リクエスト ---

// encodeCall はstruct引数1つを取るmethodCallを組み立てる。
// 値はstring, int, int64, boolのみ対応する。
func encodeCall(method string, params map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&buf, []byte(method)); err != nil {
		return nil, err
	}
	buf.WriteString("</methodName><params><param><value><struct>")

	// 出力を安定させるためキーを整列する
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf.WriteString("<member><name>")
		if err := xml.EscapeText(&buf, []byte(k)); err != nil {
			return nil, err
		}
		buf.WriteString("</name><value>")
		switch v := params[k].(type) {
		case string:
			buf.WriteString("<string>")
			if err := xml.EscapeText(&buf, []byte(v)); err != nil {
				return nil, err
			}
			buf.WriteString("</string>")
		case int:
			fmt.Fprintf(&buf, "<int>%d</int>", v)
		case int64:
			fmt.Fprintf(&buf, "<int>%d</int>", v)
		case bool:
			b := 0
			if v {
				b = 1
			}
			fmt.Fprintf(&buf, "<boolean>%d</boolean>", b)
		default:
			return nil, fmt.Errorf("unsupported param type %T for %q", v, k)
		}
		buf.WriteString("</value></member>")
	}

	buf.WriteString("</struct></value></param></params></methodCall>")
	return buf.Bytes(), nil
}

// --- レスポンス ---

type xmlValue struct {
	Raw      string     `xml:",chardata"`
	Int      *string    `xml:"int"`
	I4       *string    `xml:"i4"`
	String   *string    `xml:"string"`
	Base64   *string    `xml:"base64"`
	Boolean  *string    `xml:"boolean"`
	Double   *string    `xml:"double"`
	DateTime *string    `xml:"dateTime.iso8601"`
	Nil      *struct{}  `xml:"nil"`
	Struct   *xmlStruct `xml:"struct"`
	Array    *xmlArray  `xml:"array"`
}

type xmlStruct struct {
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	Name  string   `xml:"name"`
	Value xmlValue `xml:"value"`
}

type xmlArray struct {
	Values []xmlValue `xml:"data>value"`
}

type methodResponse struct {
	XMLName xml.Name   `xml:"methodResponse"`
	Params  []xmlValue `xml:"params>param>value"`
	Fault   *xmlValue  `xml:"fault>value"`
}

// decodeResponse はmethodResponseを読み、最初のパラメータをGoの値に変換して返す。
// faultの場合は*Faultを返す。
//
// 型対応: int/i4→int64, string・型無し→string, base64→[]byte,
// boolean→bool, double→float64, struct→map[string]any, array→[]any
func decodeResponse(r io.Reader) (any, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var resp methodResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse xml-rpc response: %w", err)
	}

	if resp.Fault != nil {
		v, err := resp.Fault.toGo()
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml-rpc fault: %w", err)
		}
		return nil, faultFrom(v)
	}

	if len(resp.Params) == 0 {
		return nil, fmt.Errorf("xml-rpc response has no params")
	}
	return resp.Params[0].toGo()
}

func faultFrom(v any) *Fault {
	f := &Fault{}
	m, ok := v.(map[string]any)
	if !ok {
		f.String = fmt.Sprint(v)
		return f
	}
	if code, ok := m["faultCode"].(int64); ok {
		f.Code = code
	}
	switch s := m["faultString"].(type) {
	case string:
		f.String = s
	case []byte:
		f.String = string(s)
	}
	return f
}

func (v *xmlValue) toGo() (any, error) {
	switch {
	case v.Int != nil:
		return parseInt(*v.Int)
	case v.I4 != nil:
		return parseInt(*v.I4)
	case v.String != nil:
		return *v.String, nil
	case v.Base64 != nil:
		data, err := base64.StdEncoding.DecodeString(stripSpace(*v.Base64))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 value: %w", err)
		}
		return data, nil
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1":
			return true, nil
		case "0":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid boolean value: %q", *v.Boolean)
		}
	case v.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double value: %w", err)
		}
		return f, nil
	case v.DateTime != nil:
		return strings.TrimSpace(*v.DateTime), nil
	case v.Nil != nil:
		return nil, nil
	case v.Struct != nil:
		m := make(map[string]any, len(v.Struct.Members))
		for i := range v.Struct.Members {
			member := &v.Struct.Members[i]
			x, err := member.Value.toGo()
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", member.Name, err)
			}
			m[member.Name] = x
		}
		return m, nil
	case v.Array != nil:
		list := make([]any, 0, len(v.Array.Values))
		for i := range v.Array.Values {
			x, err := v.Array.Values[i].toGo()
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			list = append(list, x)
		}
		return list, nil
	default:
		// 型タグの無い値は文字列
		return v.Raw, nil
	}
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int value: %w", err)
	}
	return n, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
