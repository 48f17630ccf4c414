package cpf

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	assert.Equal(t, "11144477735", Strip("111.444.777-35"))
	assert.Equal(t, "", Strip("abc"))
	assert.Equal(t, "123", Strip(" 1a2-3 "))
	// non-ASCII digits are not CPF digits
	assert.Equal(t, "12", Strip("1٣2"))
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"1", "1"},
		{"12", "12"},
		{"123", "123"},
		{"1234", "123.4"},
		{"123456", "123.456"},
		{"1234567", "123.456.7"},
		{"123456789", "123.456.789"},
		{"1234567890", "123.456.789-0"},
		{"11144477735", "111.444.777-35"},
		{"111.444.777-35", "111.444.777-35"},
		{"111444777359999", "111.444.777-35"},
		{"a1b2c", "12"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.in))
		})
	}
}

func TestFormatFewDigitsUnchanged(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := r.Intn(4)
		digits := ""
		noisy := ""
		for j := 0; j < n; j++ {
			d := string(rune('0' + r.Intn(10)))
			digits += d
			k := r.Intn(3)
			noisy += d + " -."[k:k+1]
		}
		assert.Equal(t, digits, Format(noisy), "input %q", noisy)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"11144477735", true},
		{"111.444.777-35", true},
		{"529.982.247-25", true},
		{"00000000000", false},
		{"99999999999", false},
		{"11144477736", false},
		{"11144477725", false},
		{"123", false},
		{"", false},
		{"111444777350", false},
		{"abc.def.ghi-jk", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Validate(tc.in))
		})
	}
}

// A check digit that computes to 10 or 11 must be written as 0.
func TestValidateZeroCheckDigit(t *testing.T) {
	found := 0
	for n := 100000000; n < 100100000 && found < 5; n++ {
		prefix := fmt.Sprintf("%09d", n)
		sum := 0
		for i := 0; i < 9; i++ {
			sum += int(prefix[i]-'0') * (10 - i)
		}
		if 11-sum%11 < 10 {
			continue
		}
		found++
		d1 := checkDigit(prefix)
		require.Equal(t, 0, d1)
		d2 := checkDigit(prefix + "0")
		assert.True(t, Validate(fmt.Sprintf("%s0%d", prefix, d2)), prefix)
		assert.False(t, Validate(fmt.Sprintf("%s1%d", prefix, d2)), prefix)
	}
	require.Equal(t, 5, found)
}

func TestValidateRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		s := fmt.Sprintf("%011d", r.Int63n(100000000000))
		assert.Equal(t, Validate(s), Validate(Format(s)), s)
		assert.Equal(t, s, Strip(Format(s)))
	}
	// also exercise the valid subset, which random sampling rarely hits
	for i := 0; i < 500; i++ {
		prefix := fmt.Sprintf("%09d", r.Int63n(1000000000))
		d1 := checkDigit(prefix)
		d2 := checkDigit(fmt.Sprintf("%s%d", prefix, d1))
		s := fmt.Sprintf("%s%d%d", prefix, d1, d2)
		if strings.Count(s, s[:1]) == Length {
			continue
		}
		require.True(t, Validate(s), s)
		assert.True(t, Validate(Format(s)), s)
	}
}
