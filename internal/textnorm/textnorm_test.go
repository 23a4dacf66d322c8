package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  Hola \n\t mundo  ", "Hola mundo"},
		// extracted text is final: comparison signs and literal entities stay
		{"La inflación fue 3<4 puntos y el salario > al mínimo", "La inflación fue 3<4 puntos y el salario > al mínimo"},
		{"El código &amp; la ley", "El código &amp; la ley"},
		// decomposed "o" + combining acute becomes the precomposed rune
		{"Concepcio\u0301n", "Concepci\u00f3n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), "Clean(%q)", tt.in)
	}
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "Concepcion Nandu arbol", StripAccents("Concepción Ñandú árbol"))
	assert.Equal(t, "sin acentos", StripAccents("sin acentos"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "rio san juan", Fold("  Río   SAN Juan "))
}
