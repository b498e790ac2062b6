// Package security builds the TLS settings of the HTTP API.
//
//	cfg := security.TLSConfig{CertFile: "server.pem", KeyFile: "server.key"}
//	tlsConfig, err := cfg.Build() // nil, nil when TLS is off
//
// Setting ClientCAFile turns on mutual TLS.
package security
