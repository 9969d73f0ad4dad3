package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileGeositeRoundTrips(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "ads.txt"), []byte(
		"domain:doubleclick.net\n"+
			"full:telemetry.example.com\n"+
			"keyword:adserver\n"+
			"# comment line\n"+
			"\n"+
			"tracker.example.net\n",
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "cn.txt"), []byte(
		"domain:example.cn\n",
	), 0o644))

	outPath := filepath.Join(t.TempDir(), "geosite.dat")
	require.NoError(t, CompileGeosite(srcDir, outPath))

	ads, err := LoadGeosite(outPath, "ads")
	require.NoError(t, err)
	require.True(t, ads.Match("sub.doubleclick.net."))
	require.True(t, ads.Match("telemetry.example.com."))
	require.False(t, ads.Match("other.telemetry.example.com."))
	require.True(t, ads.Match("my-adserver-host."))
	require.True(t, ads.Match("tracker.example.net."))

	cn, err := LoadGeosite(outPath, "CN")
	require.NoError(t, err)
	require.True(t, cn.Match("example.cn."))
	require.False(t, cn.Match("doubleclick.net."))
}
