package config

import "fmt"

// pemSource is one certificate input that may come from a file or inline PEM
type pemSource struct {
	name    string
	file    string
	content string
}

func (p pemSource) present() bool {
	return p.file != "" || p.content != ""
}

func (p pemSource) ambiguous() bool {
	return p.file != "" && p.content != ""
}

func (t TLSConfig) sources() (cert, key, ca pemSource) {
	return pemSource{"cert", t.CertFile, t.CertContent},
		pemSource{"key", t.KeyFile, t.KeyContent},
		pemSource{"ca", t.CAFile, t.CAContent}
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	return validateTLS(c.Server.TLS)
}

func validateTLS(t TLSConfig) error {
	cert, key, ca := t.sources()

	var required []pemSource
	switch t.Mode {
	case "disabled":
		return nil
	case "server":
		required = []pemSource{cert, key}
	case "mutual":
		required = []pemSource{cert, key, ca}
		if err := validateClientAuthPolicy(t.ClientAuthPolicy); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	for _, src := range required {
		if !src.present() {
			return fmt.Errorf("TLS %s is required for %s mode (provide either %sFile or %sContent)", src.name, t.Mode, src.name, src.name)
		}
	}
	for _, src := range []pemSource{cert, key, ca} {
		if src.ambiguous() {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", src.name, src.name)
		}
	}

	return validateTLSVersion(t.MinVersion)
}

// validateClientAuthPolicy validates the client authentication policy.
// Empty means require.
func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

func validateTLSVersion(v string) error {
	switch v {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", v)
	}
}
