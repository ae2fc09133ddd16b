package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStrings(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{EOF, "eof"},
		{EOM, "eom"},
		{Identifier, "identifier"},
		{NumericConstant, "numeric_constant"},
		{AngleStringLiteral, "angle_string_literal"},
		{LSquare, "l_square"},
		{Ellipsis, "ellipsis"},
		{HashHash, "hashhash"},
		{LessLessEqual, "lesslessequal"},
		{GreaterQuestionEqual, "greaterquestionequal"},
		{ColonColon, "coloncolon"},
		{At, "at"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestEveryKindHasAName(t *testing.T) {
	for k := Kind(0); k < NumKinds; k++ {
		assert.NotEmpty(t, k.String(), "kind %d is missing a name", k)
	}
}

func TestOutOfRangeKind(t *testing.T) {
	assert.Equal(t, "kind(200)", Kind(200).String())
}

func TestIsLiteral(t *testing.T) {
	assert.True(t, NumericConstant.IsLiteral())
	assert.True(t, StringLiteral.IsLiteral())
	assert.True(t, AngleStringLiteral.IsLiteral())
	assert.True(t, CharConstant.IsLiteral())
	assert.False(t, Identifier.IsLiteral())
	assert.False(t, Semi.IsLiteral())
	assert.False(t, EOF.IsLiteral())
}
