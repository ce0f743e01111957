package collector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Category identifies which kind of statistic a line of a bridge-stats file
// carries.
//
type Category int

const (
	CategoryUnrecognized Category = iota
	CategoryIPCounts
	CategoryIPVersionCounts
	CategoryTransportCounts
)

const (
	keywordTransports = "bridge-ip-transports"
	keywordIPs        = "bridge-ips"
	keywordIPVersions = "bridge-ip-versions"
)

var (
	// transportEntryRe matches `<transport>=<count>`, e.g.
	// `obfs4=16` or `snowflake=8`.
	//
	transportEntryRe = regexp.MustCompile(`(\w+)=(\d+)`)

	// codeEntryRe matches two-character codes, e.g. `us=16` (country)
	// or `v4=24` (ip version).
	//
	codeEntryRe = regexp.MustCompile(`(\w{2})=(\d+)`)
)

func (c Category) String() string {
	switch c {
	case CategoryIPCounts:
		return "ip-counts"
	case CategoryIPVersionCounts:
		return "ip-version-counts"
	case CategoryTransportCounts:
		return "transport-counts"
	default:
		return "unrecognized"
	}
}

// Entry is a single `key=count` pair found in a line.
//
type Entry struct {
	Key   string
	Count float64
}

// StatLine is a classified line of a bridge-stats file along with the
// entries extracted from it.
//
type StatLine struct {
	Category Category
	Entries  []Entry
}

// Classify tells which category a line belongs to. Transports are checked
// first so that a transports line is never taken for an ip-counts one.
//
func Classify(line string) Category {
	switch {
	case strings.Contains(line, keywordTransports):
		return CategoryTransportCounts
	case strings.Contains(line, keywordIPs):
		return CategoryIPCounts
	case strings.Contains(line, keywordIPVersions):
		return CategoryIPVersionCounts
	default:
		return CategoryUnrecognized
	}
}

// Extract pulls out every `key=count` pair of a line using the pattern that
// corresponds to the line's category.
//
// Tokens that don't match (e.g., `??=8`, `<OR>=8`) are skipped.
//
func Extract(category Category, line string) []Entry {
	var re *regexp.Regexp

	switch category {
	case CategoryTransportCounts:
		re = transportEntryRe
	case CategoryIPCounts, CategoryIPVersionCounts:
		re = codeEntryRe
	default:
		return nil
	}

	entries := []Entry{}
	for _, match := range re.FindAllStringSubmatch(line, -1) {
		entries = append(entries, Entry{
			Key:   match[1],
			Count: parseCount(match[2]),
		})
	}

	return entries
}

// parseCount converts a run of digits into a sample value. Counts that don't
// fit in 64 bits lose precision rather than being dropped, going up to +Inf.
//
func parseCount(digits string) float64 {
	count, err := strconv.ParseUint(digits, 10, 64)
	if err == nil {
		return float64(count)
	}

	// only ErrRange is possible here: the digits come from `\d+`, and
	// ParseFloat reports +Inf along with it.
	value, _ := strconv.ParseFloat(digits, 64)

	return value
}

// ParseLine classifies a line and extracts its entries.
//
func ParseLine(line string) StatLine {
	category := Classify(line)

	return StatLine{
		Category: category,
		Entries:  Extract(category, line),
	}
}

// Parse reads a bridge-stats document in a single pass, keeping only the
// lines that yielded at least one entry. Lines are not bounded in length.
//
func Parse(r io.Reader) ([]StatLine, error) {
	reader := bufio.NewReader(r)

	lines := []StatLine{}
	for {
		text, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read: %w", err)
		}

		if text != "" {
			line := ParseLine(strings.TrimRight(text, "\r\n"))
			if len(line.Entries) != 0 {
				lines = append(lines, line)
			}
		}

		if err != nil {
			break
		}
	}

	return lines, nil
}

// ParseFile parses the statistics file of a source.
//
func ParseFile(fs afero.Fs, source Source) ([]StatLine, error) {
	f, err := fs.Open(source.Path)
	if err != nil {
		return nil, fmt.Errorf("open '%s': %w", source.Path, err)
	}
	defer f.Close()

	lines, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse '%s': %w", source.Path, err)
	}

	return lines, nil
}
