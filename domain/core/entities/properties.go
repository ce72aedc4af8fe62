package entities

// Well-known property names shared between the cascade engine and the
// ingestion pipeline.
const (
	// PropertyNameEntityImage holds the id of the vertex serving as an
	// entity's current image.
	PropertyNameEntityImage = "entityImageVertexId"

	// PropertyNameRowKey is the stable correlation key written alongside a
	// detected-object overlay; it ties the overlay property on the artifact
	// to the resolved entity vertex.
	PropertyNameRowKey = "rowKey"

	// PropertyNameDetectedObject is the multi-valued overlay property on an
	// artifact vertex, keyed by row key.
	PropertyNameDetectedObject = "detectedObject"
)
