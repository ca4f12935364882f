package value

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
)

func init() {
	Register(&DataType{
		URI: TypeHexBinary,
		Parse: func(lit string) (Payload, error) {
			b, err := hex.DecodeString(lit)
			if err != nil {
				return nil, errSyntaxWrap("hexBinary", lit, err)
			}
			return b, nil
		},
		Format: func(p Payload) string { return hex.EncodeToString(p.([]byte)) },
		Equal: func(a, b Payload) bool {
			return bytes.Equal(a.([]byte), b.([]byte))
		},
	})

	Register(&DataType{
		URI: TypeBase64,
		Parse: func(lit string) (Payload, error) {
			b, err := base64.StdEncoding.DecodeString(lit)
			if err != nil {
				return nil, errSyntaxWrap("base64Binary", lit, err)
			}
			return b, nil
		},
		Format: func(p Payload) string { return base64.StdEncoding.EncodeToString(p.([]byte)) },
		Equal: func(a, b Payload) bool {
			return bytes.Equal(a.([]byte), b.([]byte))
		},
	})
}
