package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeAltea/altea-pay/pkg/models"
)

func TestParseDate(t *testing.T) {
	t.Run("Should convert DD/MM/YYYY to YYYY-MM-DD", func(t *testing.T) {
		d, ok := ParseDate("25/06/2025")
		require.True(t, ok)
		assert.Equal(t, "2025-06-25", FormatDate(d))
		assert.Equal(t, 2025, d.Year())
		assert.Equal(t, 6, int(d.Month()))
		assert.Equal(t, 25, d.Day())
	})

	t.Run("Should pad single digit day and month", func(t *testing.T) {
		d, ok := ParseDate("5/3/2025")
		require.True(t, ok)
		assert.Equal(t, "2025-03-05", FormatDate(d))
	})

	t.Run("Should round trip every day of a leap year", func(t *testing.T) {
		d, ok := ParseDate("01/01/2024")
		require.True(t, ok)
		for i := 0; i < 366; i++ {
			day := d.AddDate(0, 0, i)
			got, ok := ParseDate(day.Format("02/01/2006"))
			require.True(t, ok, day.String())
			assert.Equal(t, day.Format("2006-01-02"), FormatDate(got))
		}
	})

	t.Run("Should reject malformed input without panicking", func(t *testing.T) {
		for _, in := range []string{"", "   ", "2025-06-25", "25/06", "25/06/2025/1", "aa/06/2025", "25//2025", "31/02/2025", "-1/06/2025"} {
			_, ok := ParseDate(in)
			assert.False(t, ok, in)
		}
	})
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"259,8", "259.8"},
		{"1.727,09", "1727.09"},
		{"R$ 259,80", "259.8"},
		{"R$ 1.234.567,89", "1234567.89"},
		{"143,19", "143.19"},
		{"1089", "1089"},
		{"-10,00", "-10"},
		{"", "0"},
	}
	for _, tc := range cases {
		t.Run("Should parse "+tc.in, func(t *testing.T) {
			for _, mode := range []Mode{Strict, Lenient} {
				got, err := ParseAmount(tc.in, mode)
				require.NoError(t, err)
				assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "%s: got %s", mode, got)
			}
		})
	}

	t.Run("Should default to zero in lenient mode", func(t *testing.T) {
		got, err := ParseAmount("abc", Lenient)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("Should fail in strict mode", func(t *testing.T) {
		_, err := ParseAmount("abc", Strict)
		require.Error(t, err)
		var fpe *FieldParseError
		require.True(t, errors.As(err, &fpe))
		assert.Equal(t, "amount", fpe.Field)
		assert.Equal(t, "abc", fpe.Value)
	})

	t.Run("Should reject exponents and stray signs", func(t *testing.T) {
		for _, in := range []string{"1e6", "1,5E3", "--10", "+-1", ",", "1,2,3"} {
			_, err := ParseAmount(in, Strict)
			assert.Error(t, err, in)

			got, err := ParseAmount(in, Lenient)
			require.NoError(t, err, in)
			assert.True(t, got.IsZero(), in)
		}
	})
}

func TestParseDays(t *testing.T) {
	t.Run("Should parse plain counts", func(t *testing.T) {
		n, err := ParseDays(" 727 ", Strict)
		require.NoError(t, err)
		assert.Equal(t, 727, n)
	})

	t.Run("Should clamp empty and negative to zero", func(t *testing.T) {
		for _, in := range []string{"", "-5"} {
			n, err := ParseDays(in, Strict)
			require.NoError(t, err)
			assert.Zero(t, n)
		}
	})

	t.Run("Should honor the mode on garbage", func(t *testing.T) {
		n, err := ParseDays("x12", Lenient)
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = ParseDays("x12", Strict)
		var fpe *FieldParseError
		assert.True(t, errors.As(err, &fpe))
	})
}

func TestClassify(t *testing.T) {
	cases := map[int]models.Classification{
		-10: models.ClassLow,
		0:   models.ClassLow,
		90:  models.ClassLow,
		91:  models.ClassMedium,
		180: models.ClassMedium,
		181: models.ClassHigh,
		365: models.ClassHigh,
		366: models.ClassCritical,
		727: models.ClassCritical,
	}
	for days, want := range cases {
		assert.Equal(t, want, Classify(days), "days=%d", days)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("LENIENT")
	require.NoError(t, err)
	assert.Equal(t, Lenient, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)

	_, err = ParseMode("loose")
	assert.Error(t, err)
}

func TestValidDocument(t *testing.T) {
	valid := []string{"018.204.624-98", "529.982.247-25", "07.685.452/0001-01", "11.222.333/0001-81", "11222333000181"}
	for _, doc := range valid {
		assert.True(t, ValidDocument(doc), doc)
	}

	invalid := []string{"", "111.111.111-11", "529.982.247-24", "11.222.333/0001-80", "123", "00000000000000"}
	for _, doc := range invalid {
		assert.False(t, ValidDocument(doc), doc)
	}
}
