package storage

import (
	"slices"
	"strings"

	apperrors "github.com/johnquangdev/holo-archive/errors"
)

// FilterOperator is one of the textual operators accepted in filter clauses.
type FilterOperator string

const (
	OpEq       FilterOperator = "eq"
	OpNe       FilterOperator = "ne"
	OpLt       FilterOperator = "lt"
	OpLe       FilterOperator = "le"
	OpGt       FilterOperator = "gt"
	OpGe       FilterOperator = "ge"
	OpIncludes FilterOperator = "includes"
	OpExcludes FilterOperator = "excludes"
)

// FieldKind decides which operators are legal for an attribute.
type FieldKind int

const (
	// KindString supports eq/ne plus the ordering operators.
	KindString FieldKind = iota
	// KindStringSet supports includes/excludes.
	KindStringSet
)

func (k FieldKind) supports(op FilterOperator) bool {
	switch k {
	case KindString:
		switch op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			return true
		}
	case KindStringSet:
		switch op {
		case OpIncludes, OpExcludes:
			return true
		}
	}
	return false
}

// FilterClause is one parsed name:operator:value clause.
type FilterClause struct {
	Name     string
	Operator FilterOperator
	Value    string
}

// ParseFilterClause splits a textual clause. The value may itself contain
// colons; only the first two separate fields.
func ParseFilterClause(clause string) (FilterClause, error) {
	parts := strings.SplitN(clause, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return FilterClause{}, apperrors.ErrMalformedFilter(clause)
	}
	return FilterClause{Name: parts[0], Operator: FilterOperator(parts[1]), Value: parts[2]}, nil
}

// Field describes one filterable attribute of T: its kind and how to read it.
// Exactly one of String/Strings is set, matching the kind.
type Field[T any] struct {
	Kind    FieldKind
	String  func(T) string
	Strings func(T) []string
}

// Schema is the statically declared filterable-attribute table of one type.
// It replaces runtime attribute discovery: every type registers its table once
// and filter building consults nothing else.
type Schema[T any] struct {
	TypeName string
	Fields   map[string]Field[T]
}

// BuildFilter combines clauses into a single AND predicate. Unknown
// attributes and operators the attribute's kind does not support fail fast.
func (s *Schema[T]) BuildFilter(clauses ...FilterClause) (func(T) bool, error) {
	preds := make([]func(T) bool, 0, len(clauses))

	for _, clause := range clauses {
		field, ok := s.Fields[clause.Name]
		if !ok {
			return nil, apperrors.ErrNotFilterable(s.TypeName, clause.Name)
		}
		if !field.Kind.supports(clause.Operator) {
			return nil, apperrors.ErrBadFilterOperator(clause.Name, string(clause.Operator))
		}
		preds = append(preds, buildPredicate(field, clause))
	}

	return func(v T) bool {
		for _, pred := range preds {
			if !pred(v) {
				return false
			}
		}
		return true
	}, nil
}

// BuildStringFilter parses textual clauses and combines them with BuildFilter.
func (s *Schema[T]) BuildStringFilter(clauses ...string) (func(T) bool, error) {
	parsed := make([]FilterClause, 0, len(clauses))
	for _, clause := range clauses {
		fc, err := ParseFilterClause(clause)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, fc)
	}
	return s.BuildFilter(parsed...)
}

func buildPredicate[T any](field Field[T], clause FilterClause) func(T) bool {
	value := clause.Value

	switch clause.Operator {
	case OpEq:
		return func(v T) bool { return field.String(v) == value }
	case OpNe:
		return func(v T) bool { return field.String(v) != value }
	case OpLt:
		return func(v T) bool { return field.String(v) < value }
	case OpLe:
		return func(v T) bool { return field.String(v) <= value }
	case OpGt:
		return func(v T) bool { return field.String(v) > value }
	case OpGe:
		return func(v T) bool { return field.String(v) >= value }
	case OpIncludes:
		return func(v T) bool { return slices.Contains(field.Strings(v), value) }
	case OpExcludes:
		return func(v T) bool { return !slices.Contains(field.Strings(v), value) }
	}

	// unreachable: kind.supports already rejected anything else
	return func(T) bool { return false }
}
