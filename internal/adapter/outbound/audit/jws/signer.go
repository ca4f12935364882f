// Package jws produces detached JWS (RFC 7797) ES256 signatures over
// canonical audit record bytes. The key is loaded once at startup and
// reused for every record; only ECDSA P-256 keys are accepted.
package jws

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces detached-payload JWS signatures over arbitrary bytes
// using a single ECDSA P-256 private key loaded at construction.
// A Signer is immutable after construction and safe for concurrent use
// by multiple audit-writer goroutines.
type Signer struct {
	key *ecdsa.PrivateKey
}

// LoadSigner reads a PEM-encoded ECDSA P-256 private key from path and
// returns a Signer. Accepts both PKCS8 ("PRIVATE KEY") and SEC1
// ("EC PRIVATE KEY") PEM block types, since operators may generate the
// key either way (e.g. `openssl ecparam -genkey` vs `openssl pkcs8`).
func LoadSigner(path string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jws: read signing key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("jws: %s contains no PEM block", path)
	}

	key, err := parseECDSAKey(block)
	if err != nil {
		return nil, fmt.Errorf("jws: %s: %w", path, err)
	}
	if key.Curve.Params().Name != "P-256" {
		return nil, fmt.Errorf("jws: %s: key curve %s is not P-256 (ES256 requires P-256)", path, key.Curve.Params().Name)
	}
	return &Signer{key: key}, nil
}

func parseECDSAKey(block *pem.Block) (*ecdsa.PrivateKey, error) {
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS8 key is not ECDSA")
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// detachedHeader is the fixed JWS protected header for every signature
// this package produces: ES256 with RFC 7797's b64=false unencoded-payload
// option, so the signing input is "<header>.<raw payload bytes>" rather
// than "<header>.<base64url payload>".
const detachedHeader = `{"alg":"ES256","typ":"JWT","b64":false,"crit":["b64"]}`

// Sign returns the compact detached-JWS serialization (RFC 7797) over
// payload: "<protected-header>..<signature>", with the payload segment
// left empty so the signature travels alongside the (already persisted)
// record bytes instead of duplicating them. A verifier reconstructs the
// signing input by concatenating the protected header, ".", and the
// stored payload bytes verbatim (RFC 7797 "b64:false" semantics).
func (s *Signer) Sign(payload []byte) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(detachedHeader))
	signingInput := header + "." + string(payload)

	sig, err := jwt.SigningMethodES256.Sign(signingInput, s.key)
	if err != nil {
		return "", fmt.Errorf("jws: sign: %w", err)
	}
	return header + ".." + base64.RawURLEncoding.EncodeToString(sig), nil
}
