package sharding

import (
	"strings"
)

type fragmentKind int

const (
	fragmentText fragmentKind = iota
	fragmentTable
	fragmentAnchor
)

// anchor marks a position where injected SQL may be appended.
type anchor int

const (
	anchorColumns     anchor = iota + 1 // before the ")" closing an insert column list
	anchorValues                        // before the ")" closing an insert values tuple
	anchorAssignments                   // after the last "col = value" of an insert SET list
)

type fragment struct {
	kind   fragmentKind
	text   string // literal SQL, the logical table name, or injected text
	anchor anchor
}

// SQLBuilder is an immutable list of SQL fragments. Literal spans are kept
// byte for byte; table fragments stand for a logical table and are rendered
// as a token or as a physical table name.
type SQLBuilder struct {
	fragments []fragment
}

type tableSpan struct {
	start, end int
	logicTable string
}

type anchorPos struct {
	pos    int
	anchor anchor
}

// newSQLBuilder splits sql at the given table spans and anchors. Both must be
// sorted by position and must not overlap.
func newSQLBuilder(sql string, tables []tableSpan, anchors []anchorPos) *SQLBuilder {
	b := &SQLBuilder{}
	last := 0
	ti, ai := 0, 0
	for ti < len(tables) || ai < len(anchors) {
		if ai < len(anchors) && (ti >= len(tables) || anchors[ai].pos <= tables[ti].start) {
			a := anchors[ai]
			b.appendText(sql[last:a.pos])
			b.fragments = append(b.fragments, fragment{kind: fragmentAnchor, anchor: a.anchor})
			last = a.pos
			ai++
			continue
		}
		t := tables[ti]
		b.appendText(sql[last:t.start])
		b.fragments = append(b.fragments, fragment{kind: fragmentTable, text: t.logicTable})
		last = t.end
		ti++
	}
	b.appendText(sql[last:])
	return b
}

func (b *SQLBuilder) appendText(s string) {
	if s == "" {
		return
	}
	b.fragments = append(b.fragments, fragment{kind: fragmentText, text: s})
}

// withInsertion returns a copy of b with text appended at anchor a. b is
// not modified.
func (b *SQLBuilder) withInsertion(a anchor, text string) *SQLBuilder {
	out := &SQLBuilder{fragments: make([]fragment, len(b.fragments))}
	copy(out.fragments, b.fragments)
	for i, f := range out.fragments {
		if f.kind == fragmentAnchor && f.anchor == a {
			out.fragments[i].text += text
		}
	}
	return out
}

// LogicTables returns the distinct logical tables referenced by token.
func (b *SQLBuilder) LogicTables() []string {
	var tables []string
	for _, f := range b.fragments {
		if f.kind == fragmentTable && !containsString(tables, f.text) {
			tables = append(tables, f.text)
		}
	}
	return tables
}

// String renders the SQL with each table reference shown as
// [Token(logicTable)].
func (b *SQLBuilder) String() string {
	var sb strings.Builder
	for _, f := range b.fragments {
		if f.kind == fragmentTable {
			sb.WriteString("[Token(")
			sb.WriteString(f.text)
			sb.WriteString(")]")
			continue
		}
		sb.WriteString(f.text)
	}
	return sb.String()
}

// Materialize renders the SQL with table tokens replaced by the physical
// names in actualTables (keyed by logical table). Tokens without a mapping
// render their logical name.
func (b *SQLBuilder) Materialize(actualTables map[string]string) string {
	var sb strings.Builder
	for _, f := range b.fragments {
		if f.kind == fragmentTable {
			if actual, ok := actualTables[f.text]; ok && actual != "" {
				sb.WriteString(actual)
			} else {
				sb.WriteString(f.text)
			}
			continue
		}
		sb.WriteString(f.text)
	}
	return sb.String()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
