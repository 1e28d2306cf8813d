package event

const (
	TopicProductCreated        = "product.created"
	TopicProductUpdated        = "product.updated"
	TopicProductStatusChanged  = "product.status_changed"
	TopicProductDeleted        = "product.deleted"
	TopicProductImagesReleased = "product.images.released"
)

type ProductCreatedEvent struct {
	BusinessKey string   `json:"businessKey"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       string   `json:"price"`
	Status      string   `json:"status"`
	Images      []string `json:"images"`
}

type ProductUpdatedEvent struct {
	BusinessKey string `json:"businessKey"`
	// Fields lists the wire names of the fields the update touched.
	Fields []string `json:"fields"`
}

type ProductStatusChangedEvent struct {
	BusinessKey string `json:"businessKey"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type ProductDeletedEvent struct {
	BusinessKey string   `json:"businessKey"`
	Images      []string `json:"images"`
}

// ProductImagesReleasedEvent carries images an update dropped. The consumer
// deletes them from object storage.
type ProductImagesReleasedEvent struct {
	BusinessKey string   `json:"businessKey"`
	Images      []string `json:"images"`
}
