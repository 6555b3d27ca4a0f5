package normalizer_test

import (
	"testing"

	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	t.Parallel()

	t.Run("same visible text yields same key regardless of casing and accents", func(t *testing.T) {
		t.Parallel()
		accented := models.ClientAddress{
			Street: "Rua São João",
			Number: "123",
			City:   "São José dos Campos",
			Region: "SP",
		}
		plain := models.ClientAddress{
			Street: "RUA SAO JOAO",
			Number: "123",
			City:   "  sao jose   dos campos ",
			Region: "sp",
		}

		keyA, err := normalizer.Key(accented)
		require.NoError(t, err)
		keyB, err := normalizer.Key(plain)
		require.NoError(t, err)

		assert.Equal(t, keyA, keyB)
		assert.Equal(t, "rua sao joao 123 sao jose dos campos sp", keyA)
	})

	t.Run("punctuation is stripped", func(t *testing.T) {
		t.Parallel()
		addr := models.ClientAddress{
			Street:     "Av. Dr. Nélson D'Ávila",
			City:       "São José dos Campos",
			Region:     "SP",
			PostalCode: "12245-030",
		}

		key, err := normalizer.Key(addr)
		require.NoError(t, err)
		assert.Equal(t, "av dr nelson d avila sao jose dos campos sp 12245 030", key)
	})

	t.Run("missing city fails normalization", func(t *testing.T) {
		t.Parallel()
		addr := models.ClientAddress{Street: "Rua X", Region: "SP"}

		_, err := normalizer.Key(addr)
		require.ErrorIs(t, err, normalizer.ErrMissingCity)
	})

	t.Run("whitespace-only city fails normalization", func(t *testing.T) {
		t.Parallel()
		addr := models.ClientAddress{Street: "Rua X", City: "   "}

		_, err := normalizer.Key(addr)
		require.ErrorIs(t, err, normalizer.ErrMissingCity)
	})
}

func TestVariations(t *testing.T) {
	t.Parallel()

	t.Run("full address produces the ladder most specific first", func(t *testing.T) {
		t.Parallel()
		addr := models.ClientAddress{
			Street:       "Rua Sete de Setembro",
			Number:       "42",
			Neighborhood: "Centro",
			City:         "São José dos Campos",
			Region:       "SP",
			PostalCode:   "12210-100",
		}

		variations := normalizer.Variations(addr)

		require.Equal(t, []string{
			"Rua Sete de Setembro, 42, Centro, São José dos Campos, SP, Brasil",
			"Rua Sete de Setembro, Centro, São José dos Campos, SP, Brasil",
			"Rua Sete de Setembro, São José dos Campos, SP, Brasil",
			"Centro, São José dos Campos, SP, Brasil",
			"São José dos Campos, SP, Brasil",
			"12210100, Brasil",
		}, variations)
	})

	t.Run("missing fields collapse duplicates", func(t *testing.T) {
		t.Parallel()
		addr := models.ClientAddress{
			City:   "São José dos Campos",
			Region: "SP",
		}

		variations := normalizer.Variations(addr)

		require.Equal(t, []string{"São José dos Campos, SP, Brasil"}, variations)
	})

	t.Run("too-short variations are discarded", func(t *testing.T) {
		t.Parallel()
		addr := models.ClientAddress{City: "X"}

		assert.Empty(t, normalizer.Variations(addr))
	})
}

func TestExtractCEP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr models.ClientAddress
		want string
	}{
		{
			name: "structured field with hyphen",
			addr: models.ClientAddress{PostalCode: "12245-030"},
			want: "12245030",
		},
		{
			name: "structured field with dot and hyphen",
			addr: models.ClientAddress{PostalCode: "12.245-030"},
			want: "12245030",
		},
		{
			name: "bare digits",
			addr: models.ClientAddress{PostalCode: "12245030"},
			want: "12245030",
		},
		{
			name: "falls back to free-text address",
			addr: models.ClientAddress{FullAddress: "Av. Brasil, 100 - Centro, 12245-030, SJC"},
			want: "12245030",
		},
		{
			name: "repeated-digit placeholder is rejected",
			addr: models.ClientAddress{PostalCode: "11111111"},
			want: "",
		},
		{
			name: "too few digits",
			addr: models.ClientAddress{PostalCode: "1224-503"},
			want: "",
		},
		{
			name: "no CEP anywhere",
			addr: models.ClientAddress{FullAddress: "Rua sem número, Centro"},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, normalizer.ExtractCEP(tc.addr))
		})
	}
}
