// Package events declares the DDL, pool and engine event catalogs and the
// classes their targets belong to.
package events

import "DBHooks/internal/core/event"

// DDL event names.
const (
	BeforeCreate = "before_create"
	AfterCreate  = "after_create"
	BeforeDrop   = "before_drop"
	AfterDrop    = "after_drop"
)

var (
	// SchemaItemClass is the root of schema object classes.
	SchemaItemClass = event.NewClass("SchemaItem", nil)
	// MetaDataClass is the class of schema containers.
	MetaDataClass = event.NewClass("MetaData", SchemaItemClass)
	// TableClass is the class of tables.
	TableClass = event.NewClass("Table", SchemaItemClass)
)

var ddlParams = []string{"target", "connection", "extra"}

// DDL holds create/drop events for schema objects. Listeners receive the
// schema object, the connection the DDL runs on, and a map of extras.
var DDL = event.NewCatalog("ddl",
	event.Binding{Primary: SchemaItemClass},
	event.Descriptor{Name: BeforeCreate, Params: ddlParams},
	event.Descriptor{Name: AfterCreate, Params: ddlParams},
	event.Descriptor{Name: BeforeDrop, Params: ddlParams},
	event.Descriptor{Name: AfterDrop, Params: ddlParams},
)
