package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertNumbers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "0", want: "ноль"},
		{in: "21", want: "двадцать один"},
		{in: "1500", want: "одна тысяча пятьсот"},
		{in: "2000", want: "две тысячи"},
		{in: "11000", want: "одиннадцать тысяч"},
		{in: "1000000", want: "один миллион"},
		{in: "-15", want: "минус пятнадцать"},
		{in: "2.5", want: "две целых пять десятых"},
		{in: "1.25", want: "одна целая двадцать пять сотых"},
		{in: "3.0", want: "три"},
		{in: "1/2", want: "один второй"},
		{in: "3/100", want: "три сотый"},
		{in: "1/2000", want: "один двухтысячный"},
		{in: "у меня 2 кота", want: "у меня два кота"},
		{in: "Ту-154", want: "Ту-сто пятьдесят четыре"},
		{in: "12345678901234567890", want: "12345678901234567890"},
		{in: "без чисел", want: "без чисел"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ConvertNumbers(tc.in))
		})
	}
}

func TestOrdinalWords(t *testing.T) {
	assert.Equal(t, "третий", OrdinalWords(3))
	assert.Equal(t, "двадцатый", OrdinalWords(20))
	assert.Equal(t, "двадцать первый", OrdinalWords(21))
	assert.Equal(t, "сотый", OrdinalWords(100))
	assert.Equal(t, "тысячный", OrdinalWords(1000))
	assert.Equal(t, "одна тысяча первый", OrdinalWords(1001))
	assert.Equal(t, "двухтысячный", OrdinalWords(2000))
	assert.Equal(t, "двенадцатитысячный", OrdinalWords(12000))
	assert.Equal(t, "двадцатипятитысячный", OrdinalWords(25000))
	assert.Equal(t, "стотысячный", OrdinalWords(100000))
	assert.Equal(t, "трёхсотпятидесятитысячный", OrdinalWords(350000))
	assert.Equal(t, "трёхмиллионный", OrdinalWords(3_000_000))
	assert.Equal(t, "миллион двухтысячный", OrdinalWords(1_002_000))
}
