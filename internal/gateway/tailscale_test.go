// ABOUTME: Tests for tailscale listener planning and node status logging
// ABOUTME: Exercises defaults, auth key resolution and HTTP mode selection without joining a tailnet

package gateway

import (
	"bytes"
	"errors"
	"log/slog"
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/ipn/ipnstate"

	"github.com/2389/viewgate/internal/config"
)

func fixedHome(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

func envWith(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestPlanTailscale_Defaults(t *testing.T) {
	plan, err := planTailscale(config.TailscaleConfig{Hostname: "viewgate", AuthKey: "tskey-cfg"},
		envWith(nil), fixedHome("/home/alice"))
	require.NoError(t, err)

	assert.Equal(t, "viewgate", plan.hostname)
	assert.Equal(t, filepath.Join("/home/alice", ".local", "share", "viewgate", "tailscale"), plan.stateDir)
	assert.Equal(t, "tskey-cfg", plan.authKey)
	assert.Equal(t, tailscaleHTTPPlain, plan.httpMode)
	assert.Equal(t, ":80", plan.httpMode.addr())
}

func TestPlanTailscale_ExplicitStateDir(t *testing.T) {
	noHome := func() (string, error) { return "", errors.New("no home") }
	plan, err := planTailscale(config.TailscaleConfig{StateDir: "/var/lib/viewgate", AuthKey: "k"}, envWith(nil), noHome)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/viewgate", plan.stateDir)

	_, err = planTailscale(config.TailscaleConfig{AuthKey: "k"}, envWith(nil), noHome)
	assert.ErrorContains(t, err, "tailscale.state_dir")
}

func TestPlanTailscale_AuthKey(t *testing.T) {
	home := fixedHome(t.TempDir())

	plan, err := planTailscale(config.TailscaleConfig{}, envWith(map[string]string{"TS_AUTHKEY": "tskey-env"}), home)
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", plan.authKey)

	plan, err = planTailscale(config.TailscaleConfig{AuthKey: "tskey-cfg"}, envWith(map[string]string{"TS_AUTHKEY": "tskey-env"}), home)
	require.NoError(t, err)
	assert.Equal(t, "tskey-cfg", plan.authKey, "config wins over the environment")

	_, err = planTailscale(config.TailscaleConfig{}, envWith(nil), home)
	assert.ErrorContains(t, err, "auth key required")
}

func TestPlanTailscale_HTTPMode(t *testing.T) {
	tests := []struct {
		name   string
		funnel bool
		https  bool
		mode   tailscaleHTTPMode
		addr   string
	}{
		{"plain", false, false, tailscaleHTTPPlain, ":80"},
		{"https", false, true, tailscaleHTTPTLS, ":443"},
		{"funnel", true, false, tailscaleHTTPFunnel, ":443"},
		{"funnel wins over https", true, true, tailscaleHTTPFunnel, ":443"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planTailscale(config.TailscaleConfig{AuthKey: "k", Funnel: tt.funnel, HTTPS: tt.https},
				envWith(nil), fixedHome(t.TempDir()))
			require.NoError(t, err)
			assert.Equal(t, tt.mode, plan.httpMode)
			assert.Equal(t, tt.addr, plan.httpMode.addr())
		})
	}
	assert.Equal(t, "funnel", tailscaleHTTPFunnel.String())
	assert.Equal(t, "https", tailscaleHTTPTLS.String())
	assert.Equal(t, "http", tailscaleHTTPPlain.String())
}

func TestLogTailscaleStatus(t *testing.T) {
	var buf bytes.Buffer
	gw := &Gateway{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	gw.logTailscaleStatus("viewgate", &ipnstate.Status{
		TailscaleIPs: []netip.Addr{netip.MustParseAddr("100.64.0.7")},
		Self:         &ipnstate.PeerStatus{DNSName: "viewgate.tail1234.ts.net."},
	})
	assert.Contains(t, buf.String(), "tailscale_ip=100.64.0.7")
	assert.Contains(t, buf.String(), "dns_name=viewgate.tail1234.ts.net.")

	buf.Reset()
	gw.logTailscaleStatus("viewgate", &ipnstate.Status{})
	assert.Contains(t, buf.String(), "no IP addresses assigned")
}
