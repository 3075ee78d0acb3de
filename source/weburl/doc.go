// Package weburl validates and normalizes the URLs that swagger2dcat fetches.
//
// # URL Validation
//
// Policy.Validate checks URLs against the following criteria:
//
//   - Scheme must be http or https (http can be disabled)
//   - Blocks localhost variants (localhost, 127.0.0.1, ::1)
//   - Blocks local domains (.local, .internal)
//   - Blocks private IP ranges (RFC 1918, CGNAT, link-local)
//
// Private hosts can be allowed for tests and on-premise deployments with
// Policy.AllowPrivate.
//
// # IP Address Handling
//
// The IsPrivateIP function detects private/reserved IP addresses including:
//
//   - IPv4 private ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - IPv4 loopback (127.0.0.0/8)
//   - IPv4 link-local (169.254.0.0/16)
//   - CGNAT range (100.64.0.0/10)
//   - IPv6 loopback (::1)
//   - IPv6 unique local (fc00::/7)
//   - IPv6 link-local (fe80::/10)
//   - IPv6-mapped IPv4 addresses (::ffff:x.x.x.x)
//
// # Helpers
//
// Resolve joins a possibly relative reference onto a base URL, and Slug
// turns a title into the file-name stem used for exports:
//
//	weburl.Slug("Pet Store API") // "pet_store_api"
//
// # Usage
//
//	policy := weburl.Policy{AllowHTTP: true}
//	if err := policy.Validate("https://example.com/swagger.json"); err != nil {
//	    return err
//	}
package weburl
