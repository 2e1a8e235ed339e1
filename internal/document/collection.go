package document

import (
	"github.com/fabiomolinar/git2prompt/internal/routing"
)

// Collection creates documents lazily on first route and remembers creation order.
type Collection struct {
	options   Options
	order     []routing.Key
	documents map[routing.Key]*Document
}

// NewCollection returns an empty collection.
func NewCollection(options Options) *Collection {
	return &Collection{options: options, documents: make(map[routing.Key]*Document)}
}

// Append routes an entry into the document for key, creating it when needed.
func (collection *Collection) Append(key routing.Key, entry Entry) error {
	target, exists := collection.documents[key]
	if !exists {
		target = New(key, collection.options)
		collection.documents[key] = target
		collection.order = append(collection.order, key)
	}
	return target.Append(entry)
}

// Documents returns the documents in creation order.
func (collection *Collection) Documents() []*Document {
	documents := make([]*Document, 0, len(collection.order))
	for _, key := range collection.order {
		documents = append(documents, collection.documents[key])
	}
	return documents
}

// Len returns the number of documents created so far.
func (collection *Collection) Len() int {
	return len(collection.order)
}
