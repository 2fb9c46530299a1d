package party

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressLooksLikeCompany(t *testing.T) {
	tests := []struct {
		name    string
		address Address
		want    bool
	}{
		{"empty first line", Address{Name1: ""}, false},
		{"salutation only", Address{Name1: "Herr", FirstName: "Max", LastName: "Muster"}, false},
		{"company repeated in both lines", Address{Name1: "Muster GmbH", Name2: "Muster GmbH"}, true},
		{"person with name line", Address{Name1: "Max Muster", FirstName: "Max", LastName: "Muster"}, false},
		{"company without person names", Address{Name1: "Muster GmbH"}, true},
		{"english salutation", Address{Name1: "Mrs", LastName: "Doe"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.address.LooksLikeCompany())
		})
	}
}

func TestAddressContactFullName(t *testing.T) {
	t.Run("person names win", func(t *testing.T) {
		a := Address{FirstName: "Max", LastName: "Muster", Name1: "Muster GmbH"}
		first, last := a.ContactFullName()
		assert.Equal(t, "Max", first)
		assert.Equal(t, "Muster", last)
	})

	t.Run("fallback splits second name line", func(t *testing.T) {
		a := Address{Name1: "Muster GmbH", Name2: "Erika Beispiel"}
		first, last := a.ContactFullName()
		assert.Equal(t, "Erika", first)
		assert.Equal(t, "Beispiel", last)
	})

	t.Run("single word becomes last name", func(t *testing.T) {
		a := Address{Name1: "Beispiel"}
		first, last := a.ContactFullName()
		assert.Equal(t, "", first)
		assert.Equal(t, "Beispiel", last)
	})

	t.Run("nothing available", func(t *testing.T) {
		a := Address{}
		first, last := a.ContactFullName()
		assert.Equal(t, "", first)
		assert.Equal(t, "", last)
	})
}

func TestNewAddress(t *testing.T) {
	t.Run("normalizes country code", func(t *testing.T) {
		a, err := NewAddress(uuid.New(), "Hauptstr. 1", "96047", "Bamberg", " de ")
		require.NoError(t, err)
		assert.Equal(t, "DE", a.CountryCode)
	})

	t.Run("requires customer", func(t *testing.T) {
		_, err := NewAddress(uuid.Nil, "Hauptstr. 1", "96047", "Bamberg", "DE")
		assert.Error(t, err)
	})

	t.Run("requires street", func(t *testing.T) {
		_, err := NewAddress(uuid.New(), " ", "96047", "Bamberg", "DE")
		assert.Error(t, err)
	})
}

func TestAddressIdentityAssignment(t *testing.T) {
	a, err := NewAddress(uuid.New(), "Hauptstr. 1", "96047", "Bamberg", "DE")
	require.NoError(t, err)

	a.AssignErpAddressIdentity(501, 3)
	a.AssignErpContactIdentity(901, 1)

	assert.Equal(t, 501, a.ErpAnsID)
	assert.Equal(t, 3, a.ErpAnsNr)
	assert.Equal(t, 901, a.ErpAspID)
	assert.Equal(t, 1, a.ErpAspNr)
}
