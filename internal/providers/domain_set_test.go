package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainSetDomainPrefix(t *testing.T) {
	ds := &DomainSet{root: newDomainNode()}
	require.NoError(t, ds.loadReader(strings.NewReader("domain:example.com\n")))

	require.True(t, ds.Match("example.com."))
	require.True(t, ds.Match("sub.example.com."))
	require.False(t, ds.Match("notexample.com."))
}

func TestDomainSetFullPrefix(t *testing.T) {
	ds := &DomainSet{root: newDomainNode()}
	require.NoError(t, ds.loadReader(strings.NewReader("full:example.com\n")))

	require.True(t, ds.Match("example.com."))
	require.False(t, ds.Match("sub.example.com."))
}

func TestDomainSetKeywordAndRegex(t *testing.T) {
	ds := &DomainSet{root: newDomainNode()}
	input := "keyword:ads\nregex:^track\\d+\\.example\\.com$\n# a comment\n\n"
	require.NoError(t, ds.loadReader(strings.NewReader(input)))

	require.True(t, ds.Match("ads.tracker.net."))
	require.True(t, ds.Match("track42.example.com."))
	require.False(t, ds.Match("clean.example.com."))
}

func TestDomainSetDefaultPrefixIsDomain(t *testing.T) {
	ds := &DomainSet{root: newDomainNode()}
	require.NoError(t, ds.loadReader(strings.NewReader("example.org\n")))

	require.True(t, ds.Match("example.org."))
	require.True(t, ds.Match("www.example.org."))
}
