// Package threemf models 3MF documents: the core model part (objects, meshes,
// components, base materials, build items) and the OPC parts wrapping it
// (content types and relationships). Builders assemble and validate the
// graph; Registry describes its XML shape to pkg/xmlser.
package threemf

import (
	"fmt"
	"strings"
)

// Namespaces.
const (
	CoreNamespace          = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	ProductionNamespace    = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"
	ContentTypesNamespace  = "http://schemas.openxmlformats.org/package/2006/content-types"
	RelationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// ProductionPrefix is the prefix declared for ProductionNamespace.
const ProductionPrefix = "p"

// Unit is the model unit of measure.
type Unit string

// Units defined by the core specification.
const (
	UnitMicron     Unit = "micron"
	UnitMillimeter Unit = "millimeter"
	UnitCentimeter Unit = "centimeter"
	UnitInch       Unit = "inch"
	UnitFoot       Unit = "foot"
	UnitMeter      Unit = "meter"
)

var units = []Unit{UnitMicron, UnitMillimeter, UnitCentimeter, UnitInch, UnitFoot, UnitMeter}

// ParseUnit matches s case-insensitively. An empty string selects millimeter.
func ParseUnit(s string) (Unit, error) {
	if s == "" {
		return UnitMillimeter, nil
	}
	for _, u := range units {
		if strings.EqualFold(s, string(u)) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// ObjectType tags what an object is used for.
type ObjectType string

// Object types defined by the core specification.
const (
	ObjectModel        ObjectType = "model"
	ObjectSolidSupport ObjectType = "solidsupport"
	ObjectSupport      ObjectType = "support"
	ObjectSurface      ObjectType = "surface"
	ObjectOther        ObjectType = "other"
)

var objectTypes = []ObjectType{ObjectModel, ObjectSolidSupport, ObjectSupport, ObjectSurface, ObjectOther}

// ParseObjectType matches s case-insensitively. An empty string selects model.
func ParseObjectType(s string) (ObjectType, error) {
	if s == "" {
		return ObjectModel, nil
	}
	for _, t := range objectTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown object type %q", s)
}

// Extension is an extension namespace listed on the model element.
type Extension struct {
	Prefix    string
	Namespace string
}

// Model is the root of the 3D model part.
type Model struct {
	Unit                  Unit
	RequiredExtensions    string
	RecommendedExtensions string
	Metadata              []*Metadata
	Resources             *Resources
	Build                 *Build

	// Extensions binds the prefixes used in the extension lists.
	Extensions []Extension
}

// Metadata is a name/value pair. Value is written as element text.
type Metadata struct {
	Name     string
	Preserve *bool
	Type     string
	Value    string
}

// MetadataGroup holds object-level metadata.
type MetadataGroup struct {
	Metadata []*Metadata
}

// Resources holds every object and property group of a model.
type Resources struct {
	BaseMaterials []*BaseMaterials
	Objects       []*Object
}

// ObjectContent is the content of an object: *Mesh or *Components.
type ObjectContent interface {
	objectContent()
}

// Object is a resource with mesh or components content.
type Object struct {
	ID            int
	Type          ObjectType
	Thumbnail     string
	PartNumber    string
	Name          string
	PID           *int
	PIndex        *int
	UUID          string
	MetadataGroup *MetadataGroup
	Content       ObjectContent
}

// Mesh returns the mesh content, or nil.
func (o *Object) Mesh() *Mesh {
	m, _ := o.Content.(*Mesh)
	return m
}

// Components returns the components content, or nil.
func (o *Object) Components() *Components {
	c, _ := o.Content.(*Components)
	return c
}

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices  Vertices
	Triangles Triangles
}

func (*Mesh) objectContent() {}

// Vertices wraps the vertex list.
type Vertices struct {
	Items []Vertex
}

// Vertex is a point in model units.
type Vertex struct {
	X, Y, Z float32
}

// Triangles wraps the triangle list.
type Triangles struct {
	Items []Triangle
}

// Triangle references three vertices. P1..P3 and PID override the object
// level property per vertex.
type Triangle struct {
	V1, V2, V3 int
	P1, P2, P3 *int
	PID        *int
}

// Components lists references to other objects.
type Components struct {
	Items []*Component
}

func (*Components) objectContent() {}

// Component places another object inside a components object.
type Component struct {
	ObjectID  int
	Transform *Matrix3d
	UUID      string
}

// BaseMaterials is a color-only material group.
type BaseMaterials struct {
	ID    int
	Bases []*Base
}

// Base is one entry of a BaseMaterials group.
type Base struct {
	Name         string
	DisplayColor string
}

// Build lists the objects to manufacture.
type Build struct {
	UUID  string
	Items []*Item
}

// Item places an object on the build plate.
type Item struct {
	ObjectID   int
	Transform  *Matrix3d
	PartNumber string
	UUID       string
}
