package threemf

import (
	"sync"

	"github.com/Faultbox/midgard-3mf/pkg/xmlser"
)

// Registry returns the XML descriptors for every model and package type.
var Registry = sync.OnceValue(newRegistry)

func newRegistry() *xmlser.Registry {
	r := xmlser.NewRegistry()
	r.RegisterFormatter(MatrixFormatterID, func(nf *xmlser.NumberFormatter) xmlser.ValueFormatter {
		return NewMatrixFormatter(nf)
	})

	core := func(local string) xmlser.QName { return xmlser.Name(CoreNamespace, local) }
	uuid := xmlser.AttrNS(ProductionNamespace, "UUID")
	transform := xmlser.FormattedAttr("transform", MatrixFormatterID)

	r.MustRegister(Model{}, xmlser.TypeMeta{
		Name: core("model"),
		Fields: map[string]xmlser.FieldMeta{
			"Unit":                  xmlser.Attr("unit"),
			"RequiredExtensions":    xmlser.Attr("requiredextensions"),
			"RecommendedExtensions": xmlser.Attr("recommendedextensions"),
			"Extensions":            xmlser.Ignored(),
		},
	})
	r.MustRegister(Metadata{}, xmlser.TypeMeta{
		Name: core("metadata"),
		Fields: map[string]xmlser.FieldMeta{
			"Name":     xmlser.Attr("name"),
			"Preserve": xmlser.FormattedAttr("preserve", xmlser.BoolFormatterID),
			"Type":     xmlser.Attr("type"),
		},
	})
	r.MustRegister(MetadataGroup{}, xmlser.TypeMeta{Name: core("metadatagroup")})
	r.MustRegister(Resources{}, xmlser.TypeMeta{Name: core("resources")})
	r.MustRegister(Object{}, xmlser.TypeMeta{
		Name: core("object"),
		Fields: map[string]xmlser.FieldMeta{
			"ID":         xmlser.Attr("id"),
			"Type":       xmlser.Attr("type"),
			"Thumbnail":  xmlser.Attr("thumbnail"),
			"PartNumber": xmlser.Attr("partnumber"),
			"Name":       xmlser.Attr("name"),
			"PID":        xmlser.Attr("pid"),
			"PIndex":     xmlser.Attr("pindex"),
			"UUID":       uuid,
		},
	})
	r.MustRegister(Mesh{}, xmlser.TypeMeta{Name: core("mesh")})
	r.MustRegister(Vertices{}, xmlser.TypeMeta{Name: core("vertices")})
	r.MustRegister(Vertex{}, xmlser.TypeMeta{
		Name: core("vertex"),
		Fields: map[string]xmlser.FieldMeta{
			"X": xmlser.Attr("x"),
			"Y": xmlser.Attr("y"),
			"Z": xmlser.Attr("z"),
		},
	})
	r.MustRegister(Triangles{}, xmlser.TypeMeta{Name: core("triangles")})
	r.MustRegister(Triangle{}, xmlser.TypeMeta{
		Name: core("triangle"),
		Fields: map[string]xmlser.FieldMeta{
			"V1":  xmlser.Attr("v1"),
			"V2":  xmlser.Attr("v2"),
			"V3":  xmlser.Attr("v3"),
			"P1":  xmlser.Attr("p1"),
			"P2":  xmlser.Attr("p2"),
			"P3":  xmlser.Attr("p3"),
			"PID": xmlser.Attr("pid"),
		},
	})
	r.MustRegister(Components{}, xmlser.TypeMeta{Name: core("components")})
	r.MustRegister(Component{}, xmlser.TypeMeta{
		Name: core("component"),
		Fields: map[string]xmlser.FieldMeta{
			"ObjectID":  xmlser.Attr("objectid"),
			"Transform": transform,
			"UUID":      uuid,
		},
	})
	r.MustRegister(BaseMaterials{}, xmlser.TypeMeta{
		Name:   core("basematerials"),
		Fields: map[string]xmlser.FieldMeta{"ID": xmlser.Attr("id")},
	})
	r.MustRegister(Base{}, xmlser.TypeMeta{
		Name: core("base"),
		Fields: map[string]xmlser.FieldMeta{
			"Name":         xmlser.Attr("name"),
			"DisplayColor": xmlser.Attr("displaycolor"),
		},
	})
	r.MustRegister(Build{}, xmlser.TypeMeta{
		Name:   core("build"),
		Fields: map[string]xmlser.FieldMeta{"UUID": uuid},
	})
	r.MustRegister(Item{}, xmlser.TypeMeta{
		Name: core("item"),
		Fields: map[string]xmlser.FieldMeta{
			"ObjectID":   xmlser.Attr("objectid"),
			"Transform":  transform,
			"PartNumber": xmlser.Attr("partnumber"),
			"UUID":       uuid,
		},
	})

	r.MustRegister(ContentTypes{}, xmlser.TypeMeta{Name: xmlser.Name(ContentTypesNamespace, "Types")})
	r.MustRegister(ContentType{}, xmlser.TypeMeta{
		Name: xmlser.Name(ContentTypesNamespace, "Default"),
		Fields: map[string]xmlser.FieldMeta{
			"Extension":   xmlser.Attr("Extension"),
			"ContentType": xmlser.Attr("ContentType"),
		},
	})
	r.MustRegister(Relationships{}, xmlser.TypeMeta{Name: xmlser.Name(RelationshipsNamespace, "Relationships")})
	r.MustRegister(Relationship{}, xmlser.TypeMeta{
		Name: xmlser.Name(RelationshipsNamespace, "Relationship"),
		Fields: map[string]xmlser.FieldMeta{
			"ID":     xmlser.Attr("Id"),
			"Type":   xmlser.Attr("Type"),
			"Target": xmlser.Attr("Target"),
		},
	})
	return r
}
