package threemf

import "strings"

// KnownMetadata lists the metadata names defined by the core specification.
var KnownMetadata = []string{
	"Title",
	"Designer",
	"Description",
	"Copyright",
	"LicenseTerms",
	"Rating",
	"CreationDate",
	"ModificationDate",
	"Application",
}

// IsKnownMetadata reports whether name is one of KnownMetadata, ignoring case.
func IsKnownMetadata(name string) bool {
	for _, k := range KnownMetadata {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
