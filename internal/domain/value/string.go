package value

import (
	"net/url"
	"strings"
)

func init() {
	Register(&DataType{
		URI:    TypeString,
		Parse:  func(lit string) (Payload, error) { return lit, nil },
		Format: func(p Payload) string { return p.(string) },
		Equal:  func(a, b Payload) bool { return a.(string) == b.(string) },
	})

	Register(&DataType{
		URI: TypeBoolean,
		Parse: func(lit string) (Payload, error) {
			switch strings.TrimSpace(lit) {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			default:
				return nil, errSyntax("boolean", lit)
			}
		},
		Format: func(p Payload) string {
			if p.(bool) {
				return "true"
			}
			return "false"
		},
		Equal: func(a, b Payload) bool { return a.(bool) == b.(bool) },
	})

	Register(&DataType{
		URI: TypeAnyURI,
		Parse: func(lit string) (Payload, error) {
			u, err := url.Parse(lit)
			if err != nil {
				return nil, errSyntaxWrap("anyURI", lit, err)
			}
			// Canonicalize reserved-character encoding so equality is
			// character-for-character on the canonical form.
			return u.String(), nil
		},
		Format: func(p Payload) string { return p.(string) },
		Equal:  func(a, b Payload) bool { return a.(string) == b.(string) },
	})

	Register(&DataType{
		URI:    TypeRFC822Name,
		Parse:  func(lit string) (Payload, error) { return normalizeRFC822(lit) },
		Format: func(p Payload) string { return p.(string) },
		Equal:  func(a, b Payload) bool { return a.(string) == b.(string) },
	})

	Register(&DataType{
		URI:    TypeX500Name,
		Parse:  func(lit string) (Payload, error) { return strings.TrimSpace(lit), nil },
		Format: func(p Payload) string { return p.(string) },
		Equal: func(a, b Payload) bool {
			// Distinguished-name comparison ignores comma/space formatting.
			return normalizeDN(a.(string)) == normalizeDN(b.(string))
		},
	})
}

// normalizeRFC822 lower-cases the domain portion only, per RFC 822 /
// XACML's rfc822Name semantics (local-part is case sensitive, domain is not).
func normalizeRFC822(lit string) (string, error) {
	at := strings.LastIndex(lit, "@")
	if at < 0 {
		return "", errSyntax("rfc822Name", lit)
	}
	local, domain := lit[:at], lit[at+1:]
	return local + "@" + strings.ToLower(domain), nil
}

func normalizeDN(dn string) string {
	parts := strings.Split(dn, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}
