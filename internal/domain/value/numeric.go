package value

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

func init() {
	Register(&DataType{
		URI: TypeInteger,
		Parse: func(lit string) (Payload, error) {
			i, ok := new(big.Int).SetString(strings.TrimSpace(lit), 10)
			if !ok {
				return nil, errSyntax("integer", lit)
			}
			return i, nil
		},
		Format: func(p Payload) string { return p.(*big.Int).String() },
		Equal: func(a, b Payload) bool {
			return a.(*big.Int).Cmp(b.(*big.Int)) == 0
		},
		Less: func(a, b Payload) (bool, error) {
			return a.(*big.Int).Cmp(b.(*big.Int)) < 0, nil
		},
	})

	Register(&DataType{
		URI: TypeDouble,
		Parse: func(lit string) (Payload, error) {
			lit = strings.TrimSpace(lit)
			switch lit {
			case "NaN":
				return math.NaN(), nil
			case "INF", "Infinity":
				return math.Inf(1), nil
			case "-INF", "-Infinity":
				return math.Inf(-1), nil
			}
			f, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, errSyntaxWrap("double", lit, err)
			}
			return f, nil
		},
		Format: func(p Payload) string {
			f := p.(float64)
			if math.IsNaN(f) {
				return "NaN"
			}
			if math.IsInf(f, 1) {
				return "INF"
			}
			if math.IsInf(f, -1) {
				return "-INF"
			}
			return strconv.FormatFloat(f, 'g', -1, 64)
		},
		Equal: func(a, b Payload) bool {
			af, bf := a.(float64), b.(float64)
			// IEEE 754: NaN != NaN, even itself.
			if math.IsNaN(af) || math.IsNaN(bf) {
				return false
			}
			return af == bf
		},
		Less: func(a, b Payload) (bool, error) {
			af, bf := a.(float64), b.(float64)
			if math.IsNaN(af) || math.IsNaN(bf) {
				return false, fmt.Errorf("double: NaN has no ordering")
			}
			return af < bf, nil
		},
	})
}
