package facts

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubHost(t *testing.T, hostname string, cname string, hosts []string, ifaces []net.IP) {
	t.Helper()
	oldHostname, oldCNAME, oldHost, oldIfaces := osHostname, lookupCNAME, lookupHost, interfaceIPs
	t.Cleanup(func() {
		osHostname, lookupCNAME, lookupHost, interfaceIPs = oldHostname, oldCNAME, oldHost, oldIfaces
	})

	osHostname = func() (string, error) { return hostname, nil }
	lookupCNAME = func(string) (string, error) {
		if cname == "" {
			return "", errors.New("no such host")
		}
		return cname, nil
	}
	lookupHost = func(string) ([]string, error) {
		if hosts == nil {
			return nil, errors.New("no such host")
		}
		return hosts, nil
	}
	interfaceIPs = func() []net.IP { return ifaces }
}

func TestDiscover_FullyQualifiedHostname(t *testing.T) {
	stubHost(t, "gfs1.example.com", "", []string{"127.0.1.1", "10.0.0.1"}, nil)

	f, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, Facts{FQDN: "gfs1.example.com", Hostname: "gfs1", IPAddress: "10.0.0.1"}, f)
}

func TestDiscover_ShortHostnameResolvesFQDN(t *testing.T) {
	stubHost(t, "gfs1", "gfs1.example.com.", nil, []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("192.168.1.5")})

	f, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "gfs1.example.com", f.FQDN)
	assert.Equal(t, "gfs1", f.Hostname)
	assert.Equal(t, "192.168.1.5", f.IPAddress)
}

func TestDiscover_NothingResolves(t *testing.T) {
	stubHost(t, "gfs1", "", nil, nil)

	f, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, Facts{FQDN: "gfs1", Hostname: "gfs1"}, f)
}

func TestDiscover_HostnameError(t *testing.T) {
	stubHost(t, "", "", nil, nil)
	osHostname = func() (string, error) { return "", errors.New("boom") }

	_, err := Discover()
	assert.Error(t, err)
}

func TestLocalAliases(t *testing.T) {
	f := Facts{FQDN: "gfs1.example.com", Hostname: "gfs1", IPAddress: ""}

	set := LocalAliases([]string{"storage.example.com", "GFS1"}, f)
	assert.Equal(t, []string{"storage.example.com", "GFS1", "gfs1.example.com"}, set.List())
	assert.True(t, set.Contains("gfs1"))
}
