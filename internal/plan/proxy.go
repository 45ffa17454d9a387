package plan

import (
	"strconv"
	"strings"
)

// ParseProxy parses a "user:pass@host:port" descriptor.
// An empty descriptor yields a nil proxy and no error.
func ParseProxy(descriptor string) (*Proxy, error) {
	if descriptor == "" {
		return nil, nil
	}

	// Split on the last '@' so passwords may contain one
	at := strings.LastIndex(descriptor, "@")
	if at < 0 {
		return nil, configError("proxy", "expected user:pass@host:port, missing '@'")
	}
	auth, hostPort := descriptor[:at], descriptor[at+1:]

	username, password, ok := strings.Cut(auth, ":")
	if !ok {
		return nil, configError("proxy", "expected user:pass before '@', missing ':'")
	}

	colon := strings.LastIndex(hostPort, ":")
	if colon < 0 {
		return nil, configError("proxy", "expected host:port after '@', missing ':'")
	}
	host, port := hostPort[:colon], hostPort[colon+1:]

	if host == "" {
		return nil, configError("proxy", "host cannot be empty")
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return nil, configError("proxy", "invalid port %q", port)
	}

	return &Proxy{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
	}, nil
}

// Address returns "host:port".
func (p *Proxy) Address() string {
	return p.Host + ":" + p.Port
}
