package ai

// LocationLabels are the entity labels a location extractor reports as places.
// Anything else the model returns is discarded.
var LocationLabels = []string{
	"city",
	"country",
	"landmark",
	"neighborhood",
	"region",
	"state",
}
