package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	csv := `nom,siren,site,region,departement,ville,code_postal,naf
Acmé Industrie,552 100 554,https://acme.fr,Pays de la Loire,44,Nantes,44000,25.62B
Transports Durand,,,,,Rennes,35000,
,123456789,,,,,,`

	entries, err := ReadCSV(strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, entries, 2) // header skipped, nameless row dropped

	assert.Equal(t, "Acmé Industrie", entries[0].CompanyName)
	assert.Equal(t, "552100554", entries[0].SIREN) // spaces stripped
	assert.Equal(t, "https://acme.fr", entries[0].WebsiteURL)
	assert.Equal(t, "Pays de la Loire", entries[0].Region)
	assert.Equal(t, "25.62B", entries[0].SectorCode)

	// Region inferred from the postal code when the column is empty.
	assert.Equal(t, "Transports Durand", entries[1].CompanyName)
	assert.Equal(t, "Bretagne", entries[1].Region)
}

func TestReadCSV_NoHeader(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader("Acmé,,,,44\n"))

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Acmé", entries[0].CompanyName)
	assert.Equal(t, "Pays de la Loire", entries[0].Region) // from department
}

func TestReadCSV_ShortRows(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader("Acmé\n"))

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].SIREN)
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("watchlist.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
