package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"sort"

	"marketplace-iam/internal/security"
)

// JWK is one published verification key in JSON Web Key form. Only RSA
// signature keys are produced.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Document is the key-set payload served at /.well-known/jwks.json.
type Document struct {
	Keys []JWK `json:"keys"`
}

// FromKeySet renders the key set as a JWKS document. Keys are emitted in kid
// order so the document is stable across requests.
func FromKeySet(keys security.StaticKeySet) (*Document, error) {
	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	doc := &Document{Keys: make([]JWK, 0, len(kids))}
	for _, kid := range kids {
		pub, ok := keys[kid].(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key %q is not an RSA public key", kid)
		}
		doc.Keys = append(doc.Keys, JWK{
			Kty: "RSA",
			Kid: kid,
			Use: "sig",
			Alg: "RS256",
			N:   encodeInt(pub.N),
			E:   encodeInt(big.NewInt(int64(pub.E))),
		})
	}
	return doc, nil
}

// KeySet converts the document back into a verification key set. Non-RSA
// entries are rejected; the document is the only trust input on validators.
func (d *Document) KeySet() (security.StaticKeySet, error) {
	set := make(security.StaticKeySet, len(d.Keys))
	for _, k := range d.Keys {
		if k.Kty != "RSA" {
			return nil, fmt.Errorf("unsupported key type %q for kid %q", k.Kty, k.Kid)
		}
		n, err := decodeInt(k.N)
		if err != nil {
			return nil, fmt.Errorf("decode modulus for kid %q: %w", k.Kid, err)
		}
		e, err := decodeInt(k.E)
		if err != nil {
			return nil, fmt.Errorf("decode exponent for kid %q: %w", k.Kid, err)
		}
		if !e.IsInt64() || e.Int64() <= 0 {
			return nil, fmt.Errorf("exponent out of range for kid %q", k.Kid)
		}
		set[k.Kid] = &rsa.PublicKey{N: n, E: int(e.Int64())}
	}
	return set, nil
}

// encodeInt renders a positive integer as base64url without padding over its
// minimal big-endian bytes, per RFC 7518 section 6.3.
func encodeInt(i *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(i.Bytes())
}

func decodeInt(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
