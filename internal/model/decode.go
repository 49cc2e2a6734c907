package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// EntryFromFields は転送層から受け取った型の緩いレコードをEntryに変換する。
// XML-RPCのstructメンバーとJSONオブジェクトの両方に対応する。
//
// 必須キー: postername, journalname, journalurl, ditemid, logtime, event_raw, security
// 任意キー: subject_raw（欠落時は空文字列）
//
// 文字列フィールドはstringまたは[]byte（base64でタグ付けされた値）を受け付ける。
// 数字だけの件名や本文は<int>や<double>で届くため、数値スカラーも10進表記の文字列に変換する。
// 欠落または型不一致の場合はMALFORMED_ENTRYエラーを返す。
func EntryFromFields(fields map[string]any) (Entry, error) {
	var (
		e   Entry
		err error
	)

	if e.PosterName, err = requiredString(fields, "postername"); err != nil {
		return Entry{}, err
	}
	if e.JournalName, err = requiredString(fields, "journalname"); err != nil {
		return Entry{}, err
	}
	if e.JournalURL, err = requiredString(fields, "journalurl"); err != nil {
		return Entry{}, err
	}
	if e.Event, err = requiredString(fields, "event_raw"); err != nil {
		return Entry{}, err
	}
	if e.Security, err = requiredString(fields, "security"); err != nil {
		return Entry{}, err
	}

	if v, ok := fields["subject_raw"]; ok && v != nil {
		s, ok := asText(v)
		if !ok {
			return Entry{}, NewMalformedEntryError("subject_raw", fmt.Sprintf("unexpected type %T", v))
		}
		e.Subject = s
	}

	ditem, ok := fields["ditemid"]
	if !ok {
		return Entry{}, NewMalformedEntryError("ditemid", "missing")
	}
	switch v := ditem.(type) {
	case string:
		e.DItemID = v
	default:
		n, ok := asInt(v)
		if !ok {
			return Entry{}, NewMalformedEntryError("ditemid", fmt.Sprintf("unexpected type %T", v))
		}
		e.DItemID = strconv.FormatInt(n, 10)
	}

	logtime, ok := fields["logtime"]
	if !ok {
		return Entry{}, NewMalformedEntryError("logtime", "missing")
	}
	n, ok := asInt(logtime)
	if !ok {
		return Entry{}, NewMalformedEntryError("logtime", fmt.Sprintf("unexpected type %T", logtime))
	}
	e.Logtime = n

	return e, nil
}

// EntriesFromFields は複数レコードを順序を保ったまま変換する。
// 1件でも不正なレコードがあれば、その位置を含むエラーを返す。
func EntriesFromFields(records []map[string]any) ([]Entry, error) {
	entries := make([]Entry, 0, len(records))
	for i, r := range records {
		e, err := EntryFromFields(r)
		if err != nil {
			return nil, fmt.Errorf("entry #%d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func requiredString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", NewMalformedEntryError(key, "missing")
	}
	s, ok := asText(v)
	if !ok {
		return "", NewMalformedEntryError(key, fmt.Sprintf("unexpected type %T", v))
	}
	return s, nil
}

func asText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case json.Number:
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case float64:
		// float64(math.MaxInt64)は2^63に丸められるため、上限は等号も範囲外とする
		if x != math.Trunc(x) || x >= math.MaxInt64 || x < math.MinInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}
