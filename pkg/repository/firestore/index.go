package firestore

import "github.com/m-mizutani/fireconf"

// IndexConfig returns the composite indexes the queries in this package
// need, with collection names carrying prefix as New would
func IndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: prefixed(prefix, embeddingsCollection),
				Indexes: []fireconf.Index{
					// ListNotesWithStaleEmbedding
					{
						Fields: []fireconf.IndexField{
							{Path: "model", Order: fireconf.OrderAscending},
							{Path: "note_id", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
