package facts

import (
	"net"
	"os"
	"strings"

	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// Facts are the host identities a node may be referred to by
type Facts struct {
	FQDN      string
	Hostname  string
	IPAddress string
}

// Aliases returns the facts in alias order: fqdn, hostname, ipaddress
func (f Facts) Aliases() []string {
	return []string{f.FQDN, f.Hostname, f.IPAddress}
}

// Hooks for tests
var (
	osHostname   = os.Hostname
	lookupCNAME  = net.LookupCNAME
	lookupHost   = net.LookupHost
	interfaceIPs = localInterfaceIPs
)

// Discover collects the host facts. Lookups that fail leave their fact
// empty; only a missing hostname is an error.
func Discover() (Facts, error) {
	name, err := osHostname()
	if err != nil {
		return Facts{}, err
	}

	f := Facts{Hostname: shortName(name)}

	if strings.Contains(name, ".") {
		f.FQDN = name
	} else if cname, err := lookupCNAME(name); err == nil {
		f.FQDN = strings.TrimSuffix(cname, ".")
	}
	if f.FQDN == "" {
		f.FQDN = name
	}

	f.IPAddress = primaryIP(name)
	return f, nil
}

// LocalAliases builds the alias set from declared overrides followed by the
// discovered facts
func LocalAliases(overrides []string, f Facts) types.LocalAliasSet {
	return types.NewLocalAliasSet(overrides, f.Aliases()...)
}

func shortName(name string) string {
	short, _, _ := strings.Cut(name, ".")
	return short
}

// primaryIP prefers the address the hostname resolves to, then the first
// non-loopback IPv4 interface address
func primaryIP(name string) string {
	if addrs, err := lookupHost(name); err == nil {
		for _, a := range addrs {
			if ip := net.ParseIP(a); ip != nil && ip.To4() != nil && !ip.IsLoopback() {
				return a
			}
		}
	}
	for _, ip := range interfaceIPs() {
		if ip.To4() != nil && !ip.IsLoopback() {
			return ip.String()
		}
	}
	return ""
}

func localInterfaceIPs() []net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var ips []net.IP
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			ips = append(ips, ipnet.IP)
		}
	}
	return ips
}
