package skip

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"

	"github.com/compose/dataflow/function"
)

type unknownOperatorError struct {
	Op string
}

func (e unknownOperatorError) Error() string {
	return fmt.Sprintf("unkown operator, %s", e.Op)
}

type wrongTypeError struct {
	Wanted string
	Got    string
}

func (e wrongTypeError) Error() string {
	return fmt.Sprintf("value is of incompatible type, wanted %s, got %s", e.Wanted, e.Got)
}

func init() {
	function.Add(
		"skip",
		func() function.Function {
			return &skip{}
		},
	)
}

// skip keeps payloads matching {field, operator, match} and turns everything
// else into the skip sentinel, so non-matching items produce no downstream
// emission.  With an empty field the payload itself is compared.
type skip struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Match    interface{} `json:"match"`
}

func (s *skip) Apply(data interface{}) (interface{}, error) {
	val := data
	if s.Field != "" {
		m, ok := data.(map[string]interface{})
		if !ok {
			return function.Skip, nil
		}
		val = m[s.Field]
	}
	switch s.Operator {
	case "==", "eq", "$eq":
		if reflect.DeepEqual(val, s.Match) {
			return data, nil
		}
	case "=~":
		if ok, err := regexp.MatchString(s.Match.(string), val.(string)); err != nil {
			return nil, err
		} else if ok {
			return data, nil
		}
	case ">", "gt", "$gt":
		v, m, err := convertForComparison(val, s.Match)
		if err != nil {
			return nil, err
		}
		if v > m {
			return data, nil
		}
	case ">=", "gte", "$gte":
		v, m, err := convertForComparison(val, s.Match)
		if err != nil {
			return nil, err
		}
		if v >= m {
			return data, nil
		}
	case "<", "lt", "$lt":
		v, m, err := convertForComparison(val, s.Match)
		if err != nil {
			return nil, err
		}
		if v < m {
			return data, nil
		}
	case "<=", "lte", "$lte":
		v, m, err := convertForComparison(val, s.Match)
		if err != nil {
			return nil, err
		}
		if v <= m {
			return data, nil
		}
	default:
		return nil, unknownOperatorError{s.Operator}
	}
	return function.Skip, nil
}

func convertForComparison(in1, in2 interface{}) (float64, float64, error) {
	float1, err := convertToFloat(in1)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	float2, err := convertToFloat(in2)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return float1, float2, nil
}

func convertToFloat(in interface{}) (float64, error) {
	switch i := in.(type) {
	case float64:
		return i, nil
	case int:
		return float64(i), nil
	case int64:
		return float64(i), nil
	case string:
		return strconv.ParseFloat(i, 0)
	default:
		return math.NaN(), wrongTypeError{"float64 or int", fmt.Sprintf("%T", i)}
	}

}
