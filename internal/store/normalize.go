package store

import (
	"strings"
	"time"
	"unicode"
)

// NameKeySQL is the SQL form of NameKey over a column that already holds a
// CleanName value. The unique index and every lookup use this expression on
// both sides of the comparison. SQLite's lower() folds ASCII letters only.
const NameKeySQL = "lower(replace(trim(item_name), ' ', ''))"

// NameKeyPostgresSQL is NameKeySQL pinned to the C collation, where lower()
// also folds ASCII letters only.
const NameKeyPostgresSQL = `lower(replace(trim(item_name), ' ', '') COLLATE "C")`

// CleanName trims value and turns any other whitespace (tabs, newlines) into
// plain spaces. Runs of spaces are kept: catalog display names are stored as
// entered.
func CleanName(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, strings.TrimSpace(value))
}

// NameKey is the uniqueness key of a product: "Brake  Pad" and "brake pad"
// share the key "brakepad". Case folding is ASCII-only so every backend
// agrees on which names collide.
func NameKey(value string) string {
	return asciiLower(strings.ReplaceAll(CleanName(value), " ", ""))
}

// SearchTerm is the lowercase form a substring search matches against.
func SearchTerm(value string) string {
	return asciiLower(CleanName(value))
}

func asciiLower(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, value)
}

// LikePattern wraps term for a LIKE ... ESCAPE '\' substring match.
func LikePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

func NormalizeLimit(limit int) int {
	if limit < 1 {
		return DefaultSearchLimit
	}
	return limit
}

// TimestampLayout is ISO-8601 UTC with fixed millisecond precision, so the
// stored strings sort chronologically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
