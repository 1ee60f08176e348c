package section

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsift/techsift/capture"
	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/platform"
)

func extract(t *testing.T, text string, p platform.Platform) ([]Section, []entity.Diagnostic) {
	t.Helper()
	tag := platform.Tag{Platform: p, Confidence: 1}
	return Extract(capture.New("test.txt", text), tag)
}

func TestExtractDashedHeaders(t *testing.T) {
	text := strings.Join([]string{
		"------------------ show version ------------------",
		"Cisco IOS Software, Version 15.2",
		"",
		"------------------ show ip interface brief ------------------",
		"Interface              IP-Address      OK? Method Status                Protocol",
		"Vlan1                  10.0.0.1        YES NVRAM  up                    up",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoIOS)
	require.Empty(t, diags)
	require.Len(t, sections, 2)

	assert.Equal(t, "show version", sections[0].Command)
	assert.Contains(t, sections[0].Output, "Version 15.2")
	assert.Equal(t, 1, sections[0].StartLine)
	assert.Equal(t, 3, sections[0].EndLine)

	assert.Equal(t, "show ip interface brief", sections[1].Command)
	assert.Contains(t, sections[1].Output, "Vlan1")
}

func TestExtractBacktickEchoes(t *testing.T) {
	text := strings.Join([]string{
		"`show version`",
		"NXOS: version 9.3(8)",
		"`show interface brief`",
		"Eth1/1  1  eth  trunk  up  none  10G(D)  --",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoNXOS)
	require.Empty(t, diags)
	require.Len(t, sections, 2)
	assert.Equal(t, "show version", sections[0].Command)
	assert.Equal(t, "show interface brief", sections[1].Command)
}

func TestExtractPromptEchoes(t *testing.T) {
	text := strings.Join([]string{
		"core-sw-01# show version",
		"Cisco IOS Software, Version 15.2",
		"core-sw-01# show ip route",
		"Gateway of last resort is 10.0.0.1",
		"core-sw-01(config)# show clock",
		"10:41:00.123 UTC",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoIOS)
	require.Empty(t, diags)
	require.Len(t, sections, 3)
	assert.Equal(t, "show version", sections[0].Command)
	assert.Equal(t, "show ip route", sections[1].Command)
	// Config-mode prompts lock to the same hostname.
	assert.Equal(t, "show clock", sections[2].Command)
}

func TestExtractHostnameLocking(t *testing.T) {
	// "remote-box# show something" appears inside command output; only
	// the locked hostname may open a new section.
	text := strings.Join([]string{
		"core-sw-01# show logging",
		"Oct  1 10:41:00: %SYS-5-CONFIG_I: Configured from console",
		"remote-box# show tech-support",
		"core-sw-01# show version",
		"Cisco IOS Software",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoIOS)
	require.Empty(t, diags)
	require.Len(t, sections, 2)
	assert.Equal(t, "show logging", sections[0].Command)
	assert.Contains(t, sections[0].Output, "remote-box# show tech-support")
	assert.Equal(t, "show version", sections[1].Command)
}

func TestExtractFirstPromptMustLookLikeCommand(t *testing.T) {
	// A '#'-bearing line whose tail is not a command must not seize
	// the hostname lock.
	text := strings.Join([]string{
		"banner# unauthorized access prohibited",
		"core-sw-01# show version",
		"Cisco IOS Software",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoIOS)
	require.Empty(t, diags)
	require.Len(t, sections, 2)
	assert.Equal(t, "", sections[0].Command)
	assert.Equal(t, "show version", sections[1].Command)
}

func TestExtractStripsMoreMarkers(t *testing.T) {
	text := strings.Join([]string{
		"core-sw-01# show ip route",
		"O    10.1.0.0/16 [110/20] via 10.0.0.2",
		" --More-- ",
		"O    10.2.0.0/16 [110/20] via 10.0.0.2",
		"<--- More --->O    10.3.0.0/16 [110/20] via 10.0.0.2",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoIOS)
	require.Empty(t, diags)
	require.Len(t, sections, 1)

	out := sections[0].Output
	assert.NotContains(t, out, "More")
	assert.Contains(t, out, "10.2.0.0/16")
	assert.Contains(t, out, "10.3.0.0/16")
	assert.Len(t, strings.Split(out, "\n"), 3)
}

func TestExtractPreambleKept(t *testing.T) {
	text := strings.Join([]string{
		"Welcome to core-sw-01.",
		"Unauthorized access is prohibited.",
		"",
		"------------------ show version ------------------",
		"Cisco IOS Software",
	}, "\n")
	sections, diags := extract(t, text, platform.CiscoIOS)
	require.Empty(t, diags)
	require.Len(t, sections, 2)
	assert.Equal(t, "", sections[0].Command)
	assert.Contains(t, sections[0].Output, "Unauthorized access")
}

func TestExtractNoBoundariesDegrades(t *testing.T) {
	sections, diags := extract(t, "just some text\nwith no structure\n", platform.CiscoIOS)
	require.Len(t, sections, 1)
	assert.Equal(t, "", sections[0].Command)
	require.Len(t, diags, 1)
	assert.Equal(t, entity.DiagSectionBoundary, diags[0].Kind)
	assert.Equal(t, entity.SeverityWarning, diags[0].Severity)
}

func TestExtractPaloAltoWholeCapture(t *testing.T) {
	text := "<?xml version=\"1.0\"?>\n<config>\n</config>\n"
	sections, diags := extract(t, text, platform.PaloAlto)
	require.Empty(t, diags)
	require.Len(t, sections, 1)
	assert.Equal(t, "config", sections[0].Command)
	assert.Equal(t, text, sections[0].Output)
}

func TestSectionEmpty(t *testing.T) {
	assert.True(t, Section{Output: " \n\t"}.Empty())
	assert.False(t, Section{Output: "x"}.Empty())
}
