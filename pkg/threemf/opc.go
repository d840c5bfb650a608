package threemf

// Package part names.
const (
	Object3dDirName  = "3D/"
	ModelFileName    = "3dmodel.model"
	RelsDirName      = "_rels/"
	RelsFileName     = ".rels"
	ContentTypesName = "[Content_Types].xml"
)

// Content types and relationship types.
const (
	RelationshipsContentType = "application/vnd.openxmlformats-package.relationships+xml"
	ModelContentType         = "application/vnd.ms-package.3dmanufacturing-3dmodel+xml"
	ModelRelationshipType    = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"
)

// ContentTypes is the [Content_Types].xml part.
type ContentTypes struct {
	Items []*ContentType
}

// ContentType maps a file extension to a MIME type.
type ContentType struct {
	Extension   string
	ContentType string
}

// Relationships is the _rels/.rels part.
type Relationships struct {
	Items []*Relationship
}

// Relationship points the package at one of its parts.
type Relationship struct {
	ID     string
	Type   string
	Target string
}

// Document is a complete 3MF package.
type Document struct {
	ContentTypes  *ContentTypes
	Relationships *Relationships
	Model         *Model
}
