package models

// ClientAddress holds the address-bearing fields of a client record.
// The fields are owned by the upstream client store and are read-only here.
type ClientAddress struct {
	Street       string // Street name without the house number.
	Number       string // House number, may be empty.
	Neighborhood string // Neighborhood (bairro).
	City         string // City name; normalization fails without it.
	Region       string // Two-letter state code (UF), e.g. "SP".
	PostalCode   string // CEP, with or without punctuation.
	FullAddress  string // Free-text combined address as imported.
}

// Client is a client record assigned to a batch run.
type Client struct {
	ID      int           // Unique identifier in the client store.
	Name    string        // Trade name, used in override detail text.
	Active  bool          // Whether the client is currently active.
	Address ClientAddress // Address fields to resolve.
}
