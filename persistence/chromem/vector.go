package chromem

import (
	"context"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/semsearch/vector"
)

func NewChromemVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{db}, nil
}

type chromemVectorDB struct {
	db *chromem.DB
}

// Documents always carry their embedding, so the collection never calls
// an embedding function of its own.
func (vector *chromemVectorDB) Collection(name string) (vector.Collection, error) {
	c, err := vector.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

func (vector *chromemVectorDB) DeleteCollection(name string) error {
	return vector.db.DeleteCollection(name)
}

type collection struct {
	collection *chromem.Collection
}

func (c *collection) AddDocument(ctx context.Context, doc vector.Document) error {
	document := chromem.Document{
		ID:        doc.ID,
		Metadata:  doc.Metadata,
		Embedding: doc.Embedding,
		Content:   doc.Content,
	}

	return c.collection.AddDocument(ctx, document)
}

func (c *collection) FindDocument(ctx context.Context, id string) (vector.Document, error) {
	document, err := c.collection.GetByID(ctx, id)
	if err != nil {
		return vector.Document{}, err
	}

	return vector.Document{
		ID:        document.ID,
		Metadata:  document.Metadata,
		Embedding: document.Embedding,
		Content:   document.Content,
	}, nil
}

func (c *collection) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	return c.collection.Delete(ctx, nil, nil, ids...)
}

func (c *collection) Count() int {
	return c.collection.Count()
}
