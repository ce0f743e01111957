package collector

import (
	"errors"
	"math"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStats = `bridge-stats-end 2024-01-01 00:00:00 (86400 s)
bridge-ips us=16,de=8,??=8
bridge-ip-versions v4=24,v6=8
bridge-ip-transports <OR>=8,obfs4=16,snowflake=0
`

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		line     string
		expected Category
	}{
		{"bridge-ips us=16,de=8", CategoryIPCounts},
		{"bridge-ip-versions v4=24,v6=8", CategoryIPVersionCounts},
		{"bridge-ip-transports obfs4=16", CategoryTransportCounts},
		{"bridge-stats-end 2024-01-01 00:00:00 (86400 s)", CategoryUnrecognized},
		{"", CategoryUnrecognized},
		{"dirreq-v3-ips us=8", CategoryUnrecognized},

		// transports win over everything else.
		{"bridge-ip-transports bridge-ips us=3", CategoryTransportCounts},

		// first match wins between ips and ip versions.
		{"bridge-ips bridge-ip-versions v4=1", CategoryIPCounts},
	} {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.line))
		})
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "ip-counts", CategoryIPCounts.String())
	assert.Equal(t, "ip-version-counts", CategoryIPVersionCounts.String())
	assert.Equal(t, "transport-counts", CategoryTransportCounts.String())
	assert.Equal(t, "unrecognized", CategoryUnrecognized.String())
}

func TestExtract(t *testing.T) {
	for _, tc := range []struct {
		name     string
		category Category
		line     string
		expected []Entry
	}{
		{
			name:     "countries",
			category: CategoryIPCounts,
			line:     "bridge-ips us=16,de=8",
			expected: []Entry{{"us", 16}, {"de", 8}},
		},
		{
			name:     "unknown country is skipped",
			category: CategoryIPCounts,
			line:     "bridge-ips ??=8,br=4",
			expected: []Entry{{"br", 4}},
		},
		{
			name:     "ip versions",
			category: CategoryIPVersionCounts,
			line:     "bridge-ip-versions v4=24,v6=8",
			expected: []Entry{{"v4", 24}, {"v6", 8}},
		},
		{
			name:     "transports",
			category: CategoryTransportCounts,
			line:     "bridge-ip-transports <OR>=8,obfs4=16,snowflake=0",
			expected: []Entry{{"obfs4", 16}, {"snowflake", 0}},
		},
		{
			name:     "transports use their own pattern",
			category: CategoryTransportCounts,
			line:     "bridge-ip-transports us=3",
			expected: []Entry{{"us", 3}},
		},
		{
			name:     "leading zeros",
			category: CategoryIPCounts,
			line:     "bridge-ips us=007",
			expected: []Entry{{"us", 7}},
		},
		{
			name:     "counts past 64 bits are kept as floats",
			category: CategoryIPCounts,
			line:     "bridge-ips us=18446744073709551616,de=1",
			expected: []Entry{{"us", math.Pow(2, 64)}, {"de", 1}},
		},
		{
			name:     "counts past float range become infinite",
			category: CategoryIPCounts,
			line:     "bridge-ips us=1" + strings.Repeat("0", 400),
			expected: []Entry{{"us", math.Inf(1)}},
		},
		{
			name:     "largest 64 bit count",
			category: CategoryIPCounts,
			line:     "bridge-ips us=18446744073709551615",
			expected: []Entry{{"us", float64(math.MaxUint64)}},
		},
		{
			name:     "no digits",
			category: CategoryIPCounts,
			line:     "bridge-ips us=,de=x",
			expected: []Entry{},
		},
		{
			name:     "unrecognized",
			category: CategoryUnrecognized,
			line:     "dirreq-v3-ips us=8",
			expected: nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Extract(tc.category, tc.line))
		})
	}
}

func TestParseLine(t *testing.T) {
	line := ParseLine("bridge-ip-transports obfs4=10")

	assert.Equal(t, StatLine{
		Category: CategoryTransportCounts,
		Entries:  []Entry{{"obfs4", 10}},
	}, line)
}

func TestParse(t *testing.T) {
	lines, err := Parse(strings.NewReader(sampleStats))
	require.NoError(t, err)

	assert.Equal(t, []StatLine{
		{
			Category: CategoryIPCounts,
			Entries:  []Entry{{"us", 16}, {"de", 8}},
		},
		{
			Category: CategoryIPVersionCounts,
			Entries:  []Entry{{"v4", 24}, {"v6", 8}},
		},
		{
			Category: CategoryTransportCounts,
			Entries:  []Entry{{"obfs4", 16}, {"snowflake", 0}},
		},
	}, lines)
}

func TestParse_Empty(t *testing.T) {
	lines, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestParse_NoTrailingNewline(t *testing.T) {
	lines, err := Parse(strings.NewReader("bridge-ips us=1"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, []Entry{{"us", 1}}, lines[0].Entries)
}

func TestParse_LongLines(t *testing.T) {
	const count = 300000

	entries := make([]string, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, "us=1")
	}

	content := "bridge-ips v4=1\n" +
		"bridge-ips " + strings.Join(entries, ",") + "\n" +
		"bridge-ip-versions v4=2,v6=3"
	require.Greater(t, len(content), 1024*1024)

	lines, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Len(t, lines[1].Entries, count)
	assert.Equal(t, []Entry{{"v4", 2}, {"v6", 3}}, lines[2].Entries)
}

func TestParse_CarriageReturns(t *testing.T) {
	lines, err := Parse(strings.NewReader("bridge-ips us=1\r\nbridge-ips de=2\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []StatLine{
		{Category: CategoryIPCounts, Entries: []Entry{{"us", 1}}},
		{Category: CategoryIPCounts, Entries: []Entry{{"de", 2}}},
	}, lines)
}

func TestParse_ReadError(t *testing.T) {
	failure := errors.New("disk on fire")

	_, err := Parse(iotest.ErrReader(failure))
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
}

func TestParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, defaultStatsPath(), sampleStats)

	lines, err := ParseFile(fs, Source{
		Name: DefaultInstanceName,
		Path: defaultStatsPath(),
	})
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(afero.NewMemMapFs(), Source{
		Name: "alpha",
		Path: instanceStatsPath("alpha"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open '/var/lib/tor-instances/alpha/stats/bridge-stats'")
}
