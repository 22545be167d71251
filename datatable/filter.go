// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datatable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Filter decides whether a row is visible.
type Filter interface {
	Evaluate(row []Value, columns []string) (bool, error)
	Description() string
}

// CompOp is a comparison operator in a filter expression.
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// Longer symbols first so ">=" wins over ">" and "=".
var compOps = []struct {
	op     CompOp
	symbol string
}{
	{OpGreaterEqual, ">="},
	{OpLessEqual, "<="},
	{OpNotEqual, "!="},
	{OpEqual, "="},
	{OpGreater, ">"},
	{OpLess, "<"},
	{OpContains, "~"},
}

func (op CompOp) String() string {
	for _, c := range compOps {
		if c.op == op {
			return c.symbol
		}
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Comparison tests one column against a literal. An empty Column searches
// every column for Value.
type Comparison struct {
	Column string
	Op     CompOp
	Value  string
}

func (c *Comparison) Evaluate(row []Value, columns []string) (bool, error) {
	if c.Column == "" {
		needle := strings.ToLower(c.Value)
		for _, v := range row {
			if strings.Contains(strings.ToLower(v.Formatted), needle) {
				return true, nil
			}
		}
		return false, nil
	}

	idx := indexFold(columns, c.Column)
	if idx < 0 {
		return false, fmt.Errorf("%w: %s", ErrColumnNotFound, c.Column)
	}
	if idx >= len(row) {
		return false, nil
	}
	cell := row[idx].Formatted

	switch c.Op {
	case OpEqual:
		return strings.EqualFold(cell, c.Value), nil
	case OpNotEqual:
		return !strings.EqualFold(cell, c.Value), nil
	case OpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(c.Value)), nil
	default:
		return compareOrdered(cell, c.Value, c.Op), nil
	}
}

func (c *Comparison) Description() string {
	if c.Column == "" {
		return fmt.Sprintf("any ~ %q", c.Value)
	}
	return fmt.Sprintf("%s %s %q", c.Column, c.Op, c.Value)
}

// compareOrdered compares numerically when both sides parse as numbers
// and case-insensitively as text otherwise.
func compareOrdered(cell, literal string, op CompOp) bool {
	var cmp int
	a, errA := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(literal), 64)
	if errA == nil && errB == nil {
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(strings.ToLower(cell), strings.ToLower(literal))
	}

	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}
	return false
}

// LogicOp joins two filters.
type LogicOp int

const (
	LogicAND LogicOp = iota
	LogicOR
)

func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", op)
	}
}

// CompositeFilter combines filters with AND or OR logic.
type CompositeFilter struct {
	Filters []Filter
	Logic   LogicOp
}

func (f *CompositeFilter) Evaluate(row []Value, columns []string) (bool, error) {
	if len(f.Filters) == 0 {
		return true, nil
	}

	switch f.Logic {
	case LogicAND:
		for _, filter := range f.Filters {
			ok, err := filter.Evaluate(row, columns)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case LogicOR:
		for _, filter := range f.Filters {
			ok, err := filter.Evaluate(row, columns)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown logic operator %d", ErrInvalidFilter, f.Logic)
	}
}

func (f *CompositeFilter) Description() string {
	if len(f.Filters) == 0 {
		return "empty filter"
	}
	parts := make([]string, len(f.Filters))
	for i, filter := range f.Filters {
		parts[i] = filter.Description()
	}
	return "(" + strings.Join(parts, " "+f.Logic.String()+" ") + ")"
}

var logicSplit = regexp.MustCompile(`(?i)\s+(AND|OR)\s+`)

// ParseFilter parses expressions such as `name = bob AND age > 30`.
// Operators are applied left to right. A term without an operator matches
// rows containing it in any column. A blank expression yields a nil
// filter.
func ParseFilter(expr string, columns []string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var (
		terms []string
		ops   []LogicOp
		last  int
	)
	for _, m := range logicSplit.FindAllStringSubmatchIndex(expr, -1) {
		terms = append(terms, expr[last:m[0]])
		if strings.EqualFold(expr[m[2]:m[3]], "AND") {
			ops = append(ops, LogicAND)
		} else {
			ops = append(ops, LogicOR)
		}
		last = m[1]
	}
	terms = append(terms, expr[last:])

	var result Filter
	for i, term := range terms {
		cmp, err := parseComparison(term, columns)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = cmp
			continue
		}
		result = &CompositeFilter{Filters: []Filter{result, cmp}, Logic: ops[i-1]}
	}
	return result, nil
}

func parseComparison(term string, columns []string) (*Comparison, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty term", ErrInvalidFilter)
	}

	for _, c := range compOps {
		idx := strings.Index(term, c.symbol)
		if idx <= 0 {
			continue
		}
		column := strings.TrimSpace(term[:idx])
		if indexFold(columns, column) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
		}
		value := strings.Trim(strings.TrimSpace(term[idx+len(c.symbol):]), "\"'")
		return &Comparison{Column: column, Op: c.op, Value: value}, nil
	}
	return &Comparison{Op: OpContains, Value: strings.Trim(term, "\"'")}, nil
}

func indexFold(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}
