package condition

// Field builds a Reference argument naming field.
func Field(field string) Argument {
	return Argument{Value: MappingValue{Kind: Reference, Path: field}}
}

// Literal builds an Immediate value argument.
func Literal(v any) Argument {
	return Argument{Value: MappingValue{Kind: Immediate, Value: v}}
}

// Nested wraps expr as an Expression-kind argument for And/Or/Not.
func Nested(expr Expression) Argument {
	return Argument{IsExpression: true, Expr: expr}
}

// Eq builds an `Eq(field, value)` expression node.
func Eq(field string, value any) Expression {
	return Expression{Op: "EQ", Arguments: []Argument{Field(field), Literal(value)}}
}

// And builds an `And(exprs...)` expression node.
func And(exprs ...Expression) Expression {
	args := make([]Argument, len(exprs))
	for i, e := range exprs {
		args[i] = Nested(e)
	}
	return Expression{Op: "AND", Arguments: args}
}

// Or builds an `Or(exprs...)` expression node.
func Or(exprs ...Expression) Expression {
	args := make([]Argument, len(exprs))
	for i, e := range exprs {
		args[i] = Nested(e)
	}
	return Expression{Op: "OR", Arguments: args}
}

// Not builds a `Not(expr)` expression node.
func Not(expr Expression) Expression {
	return Expression{Op: "NOT", Arguments: []Argument{Nested(expr)}}
}
