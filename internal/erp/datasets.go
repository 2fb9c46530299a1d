package erp

import "go.uber.org/zap"

// Recordset names and their declared primary index fields. The Anschriften
// index is the composite (AdrNr, AnsNr) tuple, the Ansprechpartner index the
// (AdrNr, AnsNr, AspNr) tuple; both are addressed through their combined
// index name.
const (
	DatasetAdressen        = "Adressen"
	DatasetAnschriften     = "Anschriften"
	DatasetAnsprechpartner = "Ansprechpartner"
	DatasetArtikel         = "Artikel"
	DatasetVorgang         = "Vorgang"
	DatasetLager           = "Lager"

	IndexAdresseNr       = "Nr"
	IndexAnschrift       = "AdrNrAnsNr"
	IndexAnsprechpartner = "Nr"
	IndexArtikelNr       = "Nr"
	IndexVorgangBelegNr  = "BelegNr"
	IndexLager           = "ArtNrLagNr"
)

// OpenAdressen opens the customer master recordset.
func OpenAdressen(session Session, logger *zap.Logger) (*Dataset, error) {
	return NewDataset(session, DatasetAdressen, IndexAdresseNr, logger)
}

// OpenAnschriften opens the address-children recordset.
func OpenAnschriften(session Session, logger *zap.Logger) (*Dataset, error) {
	return NewDataset(session, DatasetAnschriften, IndexAnschrift, logger)
}

// OpenAnsprechpartner opens the contact-person recordset.
func OpenAnsprechpartner(session Session, logger *zap.Logger) (*Dataset, error) {
	return NewDataset(session, DatasetAnsprechpartner, IndexAnsprechpartner, logger)
}

// OpenArtikel opens the article master recordset.
func OpenArtikel(session Session, logger *zap.Logger) (*Dataset, error) {
	return NewDataset(session, DatasetArtikel, IndexArtikelNr, logger)
}

// OpenVorgang opens the sales-document recordset.
func OpenVorgang(session Session, logger *zap.Logger) (*Dataset, error) {
	return NewDataset(session, DatasetVorgang, IndexVorgangBelegNr, logger)
}

// OpenLager opens the stock recordset, keyed by (ArtNr, LagNr).
func OpenLager(session Session, logger *zap.Logger) (*Dataset, error) {
	return NewDataset(session, DatasetLager, IndexLager, logger)
}
