// Package worklist parses the CSV list of resources an operator wants
// acted on.
//
// Each line is "resource-id,account-id,region[,notes]". Blank lines and
// lines starting with # are ignored. Values may be wrapped in double or
// single quotes; either kind protects embedded commas, and a doubled quote
// character inside stands for one quote. Quoted values must not span lines.
package worklist

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yairfalse/inventa/internal/reconcile"
)

// Item is one requested resource.
type Item struct {
	ID      string
	Account string
	Region  string
	Notes   string
	Line    int
}

// List is a parsed work list. Duplicate ids keep their first line.
type List struct {
	Items []Item
}

// Load reads a work list file.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open work list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads a work list.
func Parse(r io.Reader) (*List, error) {
	normalized, err := requoteLines(r)
	if err != nil {
		return nil, fmt.Errorf("read work list: %w", err)
	}

	cr := csv.NewReader(strings.NewReader(normalized))
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.LazyQuotes = true

	list := &List{}
	seen := make(map[string]bool)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse work list: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("parse work list: line %d: want id,account,region[,notes], got %d field(s)", line, len(rec))
		}

		item := Item{
			ID:      strings.TrimSpace(rec[0]),
			Account: strings.TrimSpace(rec[1]),
			Region:  strings.TrimSpace(rec[2]),
			Line:    line,
		}
		if len(rec) > 3 {
			// unquoted commas in the notes column are kept as written
			item.Notes = strings.TrimSpace(strings.Join(rec[3:], ","))
		}
		if item.ID == "" || item.Account == "" || item.Region == "" {
			return nil, fmt.Errorf("parse work list: line %d: id, account and region must not be empty", line)
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		list.Items = append(list.Items, item)
	}
	return list, nil
}

// requoteLines rewrites every line with requote so csv.Reader sees only
// double-quoted fields. Line numbers are preserved.
func requoteLines(r io.Reader) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		b.WriteString(requote(strings.TrimRight(sc.Text(), "\r")))
		b.WriteByte('\n')
	}
	return b.String(), sc.Err()
}

// requote converts fields quoted with ' or " into csv double quoting and
// drops the blanks around them. Other fields are copied unchanged.
func requote(line string) string {
	var b strings.Builder
	for i := 0; ; {
		if v, end, ok := quotedField(line, i); ok {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `""`))
			b.WriteByte('"')
			i = end
		} else {
			end := strings.IndexByte(line[i:], ',')
			if end < 0 {
				b.WriteString(line[i:])
				return b.String()
			}
			b.WriteString(line[i : i+end])
			i += end
		}
		if i >= len(line) {
			return b.String()
		}
		b.WriteByte(',')
		i++
	}
}

// quotedField reads a quoted field starting at start. end is the index of
// the comma after it, or len(line). ok is false when the field is not
// quoted or its closing quote is not followed by a comma.
func quotedField(line string, start int) (value string, end int, ok bool) {
	i := skipBlanks(line, start)
	if i >= len(line) || (line[i] != '\'' && line[i] != '"') {
		return "", 0, false
	}
	q := line[i]

	var v strings.Builder
	for i++; i < len(line); i++ {
		if line[i] != q {
			v.WriteByte(line[i])
			continue
		}
		if i+1 < len(line) && line[i+1] == q {
			v.WriteByte(q)
			i++
			continue
		}
		end = skipBlanks(line, i+1)
		if end == len(line) || line[end] == ',' {
			return v.String(), end, true
		}
		return "", 0, false
	}
	return "", 0, false
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// Accounts returns the declared accounts in first-seen order.
func (l *List) Accounts() []string {
	return firstSeen(l.Items, func(i Item) string { return i.Account })
}

// Regions returns the declared regions in first-seen order.
func (l *List) Regions() []string {
	return firstSeen(l.Items, func(i Item) string { return i.Region })
}

// Targets converts the items for reconcile.Engine.Locate.
func (l *List) Targets() []reconcile.Target {
	out := make([]reconcile.Target, 0, len(l.Items))
	for _, i := range l.Items {
		out = append(out, reconcile.Target{ID: i.ID, Account: i.Account, Region: i.Region, Notes: i.Notes})
	}
	return out
}

func firstSeen(items []Item, key func(Item) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, i := range items {
		k := key(i)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
