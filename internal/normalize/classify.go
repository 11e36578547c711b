package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"invsync/internal/inventory"
)

// Kind is the role a column header assigns to the cells below it.
type Kind int

const (
	KindIgnored Kind = iota
	KindInbound
	KindOutbound
	KindBalance
)

func (k Kind) String() string {
	switch k {
	case KindInbound:
		return "inbound"
	case KindOutbound:
		return "outbound"
	case KindBalance:
		return "balance"
	default:
		return "ignored"
	}
}

// Classification is the result of reading one column header.
type Classification struct {
	Kind Kind
	// Date is the date token found in the header, or inventory.RecentDate.
	Date string
	// DateFound reports whether Date came from the header.
	DateFound bool
}

var (
	datePattern = regexp.MustCompile(`(?i)\b(?:\d{1,2}|jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)/\d{1,2}(?:/\d{2,4})?\b`)

	inboundPattern  = regexp.MustCompile(`(?i)inbound|stock[\s_-]*in\b|received|receipts?\b`)
	outboundPattern = regexp.MustCompile(`(?i)outbound|stock[\s_-]*out\b|issued|sold`)
	balancePattern  = regexp.MustCompile(`(?i)balance|\bqty\b|quantity|count|stock|on[\s_-]*hand`)
)

// Classify maps a column header to the kind of quantity its cells hold and the
// period they belong to. Inbound and outbound wording is checked before balance
// wording because "stock in" also contains "stock".
func Classify(header string) Classification {
	c := Classification{Kind: KindIgnored, Date: inventory.RecentDate}
	if tok := datePattern.FindString(header); tok != "" {
		c.Date = tok
		c.DateFound = true
	}

	rest := datePattern.ReplaceAllString(header, " ")
	switch {
	case inboundPattern.MatchString(rest):
		c.Kind = KindInbound
	case outboundPattern.MatchString(rest):
		c.Kind = KindOutbound
	case hasSymbol(rest, "+"):
		c.Kind = KindInbound
	case hasSymbol(rest, "-"):
		c.Kind = KindOutbound
	case balancePattern.MatchString(rest):
		c.Kind = KindBalance
	}
	return c
}

// hasSymbol reports whether sym appears as a standalone token, optionally
// wrapped in parentheses, so "On-hand" does not count as "-".
func hasSymbol(header, sym string) bool {
	for _, f := range strings.Fields(header) {
		f = strings.Trim(f, "()[]")
		if f == sym {
			return true
		}
	}
	return false
}

var movementWords = regexp.MustCompile(`(?i)inbound|outbound|stock[\s_-]*in\b|stock[\s_-]*out\b|received|receipts?\b|issued|sold|balance|\bqty\b|quantity|count|stock|on[\s_-]*hand|\(\s*[+-]\s*\)|(?:^|\s)[+-](?:\s|$)`)

// headerBranch strips the date token and movement wording from a header,
// leaving the branch label positional layouts embed in column headers.
func headerBranch(header string) string {
	s := datePattern.ReplaceAllString(header, " ")
	s = movementWords.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -_:|/()[]")
}

var fractionPattern = regexp.MustCompile(`\.\d*`)

// CleanQuantity parses a human entered quantity into a non-negative integer.
//
// Truncation policy: a period always starts a fraction, and every fraction is
// truncated, never rounded. "12.9" reads as 12 and "0.5" as 0. Periods are not
// accepted as thousands separators, so "1.234" reads as 1, not 1234; commas
// are, so "1,234.56" reads as 1234.
//
// Every remaining non-digit is stripped before parsing, so a leading minus
// sign is discarded: "-5" reads as 5. Unparsable input and values beyond the
// int range yield 0.
func CleanQuantity(raw string) int {
	s := fractionPattern.ReplaceAllString(raw, "")
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// IsBlankCell reports whether a cell carries no meaningful value.
func IsBlankCell(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "-", "--", "–", "—", "n/a", "na", "nil", "null":
		return true
	}
	return false
}
