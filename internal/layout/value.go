/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// Value is a coordinate argument: a plain number, a percentage ("50%") of the
// relevant bbox dimension, or a calc() expression over the bbox.
// The zero Value is "unset".
type Value struct {
	num  float64
	expr string
	set  bool
}

func Num(v float64) Value   { return Value{num: v, set: true} }
func Expr(s string) Value   { return Value{expr: strings.TrimSpace(s), set: true} }
func (v Value) IsSet() bool { return v.set }

func (v Value) String() string {
	if !v.set {
		return ""
	}
	if v.expr != "" {
		return v.expr
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	if v.expr != "" {
		return json.Marshal(v.expr)
	}
	return json.Marshal(v.num)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Expr(str)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("layout value: %w", err)
	}
	*v = Num(f)
	return nil
}

// IsPercentage reports a "NN%" argument.
func (v Value) IsPercentage() bool { return v.expr != "" && strings.HasSuffix(v.expr, "%") }

// IsCalc reports a calc() argument.
func (v Value) IsCalc() bool { return IsCalcExpression(v.expr) }

// Resolve evaluates v; dim is the bbox dimension percentages refer to.
// Unset values resolve to (0, false).
func (v Value) Resolve(bbox geometry.Rect, dim float64) (float64, bool) {
	if !v.set {
		return 0, false
	}
	switch {
	case v.expr == "":
		return v.num, true
	case v.IsPercentage():
		f, err := strconv.ParseFloat(strings.TrimSuffix(v.expr, "%"), 64)
		if err != nil {
			return 0, false
		}
		return f / 100 * dim, true
	case v.IsCalc():
		f, err := EvalCalc(v.expr, bbox)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		f, err := strconv.ParseFloat(v.expr, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
}

// IsCalcExpression reports whether s has the calc(...) form.
func IsCalcExpression(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "calc(") && strings.HasSuffix(s, ")")
}

// EvalCalc evaluates calc(<term> ([+-] <term>)*) against bbox. A term is a
// number, a property or k*property; properties are
//
//	w width, h height, x, y origin, s shorter side, l longer side, d diagonal.
func EvalCalc(expr string, bbox geometry.Rect) (float64, error) {
	s := strings.TrimSpace(expr)
	if !IsCalcExpression(s) {
		return 0, fmt.Errorf("calc: not a calc expression: %q", expr)
	}
	body := strings.ReplaceAll(s[len("calc("):len(s)-1], " ", "")
	if body == "" {
		return 0, fmt.Errorf("calc: empty expression")
	}
	var total float64
	start := 0
	for i := 1; i <= len(body); i++ {
		if i < len(body) {
			c := body[i]
			if (c != '+' && c != '-') || body[i-1] == '*' || (body[i-1] == 'e' && isDigitBefore(body, i-1)) {
				continue
			}
		}
		term, err := evalTerm(body[start:i], bbox)
		if err != nil {
			return 0, fmt.Errorf("calc %q: %w", expr, err)
		}
		total += term
		start = i
	}
	return total, nil
}

func isDigitBefore(s string, i int) bool {
	return i > 0 && s[i-1] >= '0' && s[i-1] <= '9'
}

func evalTerm(term string, bbox geometry.Rect) (float64, error) {
	sign := 1.0
	switch {
	case strings.HasPrefix(term, "-"):
		sign, term = -1, term[1:]
	case strings.HasPrefix(term, "+"):
		term = term[1:]
	}
	if term == "" {
		return 0, fmt.Errorf("empty term")
	}
	product := sign
	for _, f := range strings.Split(term, "*") {
		v, err := evalFactor(f, bbox)
		if err != nil {
			return 0, err
		}
		product *= v
	}
	return product, nil
}

func evalFactor(f string, bbox geometry.Rect) (float64, error) {
	switch f {
	case "w":
		return bbox.Width, nil
	case "h":
		return bbox.Height, nil
	case "x":
		return bbox.X, nil
	case "y":
		return bbox.Y, nil
	case "s":
		return math.Min(bbox.Width, bbox.Height), nil
	case "l":
		return math.Max(bbox.Width, bbox.Height), nil
	case "d":
		return math.Hypot(bbox.Width, bbox.Height), nil
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return 0, fmt.Errorf("bad factor %q", f)
	}
	return v, nil
}
