package oh5

import (
	"sort"
	"strings"

	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// SourceKeys lists the identifying keys of a source, most specific first
var SourceKeys = []string{"NOD", "WMO", "RAD", "PLC", "CMT"}

// Source is a named set of key/value pairs identifying a radar or product origin
type Source struct {
	Name   string
	Values map[string]string
}

// ParseSource parses an ODIM source string such as "WMO:02606,RAD:SE50"
func ParseSource(s string) (Source, error) {
	src := Source{Values: make(map[string]string)}
	if strings.TrimSpace(s) == "" {
		return src, nil
	}
	for _, item := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(item, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Source{}, dberr.Value("invalid source element %q in %q", item, s)
		}
		if _, dup := src.Values[key]; dup {
			return Source{}, dberr.Duplicate("source key %q repeated in %q", key, s)
		}
		src.Values[key] = strings.TrimSpace(value)
	}
	return src, nil
}

// Keys returns the keys sorted alphabetically
func (s Source) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the key/value pairs in ODIM form with keys sorted
func (s Source) String() string {
	parts := make([]string, 0, len(s.Values))
	for _, k := range s.Keys() {
		parts = append(parts, k+":"+s.Values[k])
	}
	return strings.Join(parts, ",")
}

// WhatObject returns /what/object
func (m *Metadata) WhatObject() (string, error) {
	v, err := m.Value("/what/object")
	if err != nil {
		return "", err
	}
	return v.AsString()
}

// WhatSource returns /what/source
func (m *Metadata) WhatSource() (string, error) {
	v, err := m.Value("/what/source")
	if err != nil {
		return "", err
	}
	return v.AsString()
}

// WhatDate returns /what/date, which may be stored as YYYYMMDD text
func (m *Metadata) WhatDate() (types.Date, error) {
	v, err := m.Value("/what/date")
	if err != nil {
		return types.Date{}, err
	}
	return v.ToDate()
}

// WhatTime returns /what/time, which may be stored as HHMMSS text
func (m *Metadata) WhatTime() (types.Time, error) {
	v, err := m.Value("/what/time")
	if err != nil {
		return types.Time{}, err
	}
	return v.ToTime()
}

// Source parses /what/source
func (m *Metadata) Source() (Source, error) {
	s, err := m.WhatSource()
	if err != nil {
		return Source{}, err
	}
	return ParseSource(s)
}
