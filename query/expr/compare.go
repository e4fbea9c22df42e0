package expr

import (
	"math"
	"strconv"
	"strings"
	"time"
)

func (e Expression) number() float64 {
	switch e.kind {
	case KindInt64:
		return float64(e.i)
	case KindDouble:
		return e.f
	case KindBool:
		if e.b {
			return 1
		}
	}
	return 0
}

// Equal reports structural equality. Values of different kinds are equal only
// when both kinds are arithmetic and the numeric values match.
func (e Expression) Equal(o Expression) bool {
	if e.kind != o.kind {
		if e.kind.Arithmetic() && o.kind.Arithmetic() {
			return e.number() == o.number()
		}
		return false
	}
	return e.Compare(o) == 0
}

// Compare orders two expressions. Arithmetic kinds compare numerically with
// each other; other mixed kinds order by kind. Lists compare element-wise.
func (e Expression) Compare(o Expression) int {
	if e.kind != o.kind {
		if e.kind.Arithmetic() && o.kind.Arithmetic() {
			return cmpFloat(e.number(), o.number())
		}
		return cmpInt(int64(e.kind), int64(o.kind))
	}

	switch e.kind {
	case KindList:
		for i := 0; i < len(e.list) && i < len(o.list); i++ {
			if c := e.list[i].Compare(o.list[i]); c != 0 {
				return c
			}
		}
		return cmpInt(int64(len(e.list)), int64(len(o.list)))
	case KindBool, KindDouble:
		return cmpFloat(e.number(), o.number())
	case KindInt64:
		return cmpInt(e.i, o.i)
	case KindString, KindSymbol:
		return strings.Compare(e.s, o.s)
	case KindDate:
		return e.d.Compare(o.d)
	case KindTime:
		return e.t.Compare(o.t)
	case KindDateTime:
		return e.dt.Compare(o.dt)
	case KindInterval:
		return cmpInt(int64(e.iv), int64(o.iv))
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String renders e as an s-expression. Distinct expressions render distinctly,
// so the text can serve as a cache key.
func (e Expression) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e Expression) write(sb *strings.Builder) {
	switch e.kind {
	case KindList:
		sb.WriteByte('(')
		for i, x := range e.list {
			if i > 0 {
				sb.WriteByte(' ')
			}
			x.write(sb)
		}
		sb.WriteByte(')')
	case KindBool:
		if e.b {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case KindInt64:
		sb.WriteString(strconv.FormatInt(e.i, 10))
	case KindDouble:
		s := strconv.FormatFloat(e.f, 'g', -1, 64)
		if !math.IsInf(e.f, 0) && !math.IsNaN(e.f) && !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		sb.WriteString(s)
	case KindString:
		sb.WriteString(strconv.Quote(e.s))
	case KindDate:
		sb.WriteString("#date:" + e.d.String())
	case KindTime:
		sb.WriteString("#time:" + e.t.String())
	case KindDateTime:
		sb.WriteString("#datetime:" + e.dt.Format(time.RFC3339Nano))
	case KindInterval:
		sb.WriteString("#interval:" + e.iv.String())
	case KindSymbol:
		sb.WriteString(e.s)
	}
}
