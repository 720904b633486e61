package model

// CellKind is a closed tag describing how a property value is rendered.
// Renderers dispatch on this tag rather than inspecting raw schema types at
// render time.
type CellKind string

const (
	KindString  CellKind = "string"
	KindNumber  CellKind = "number"
	KindInteger CellKind = "integer"
	KindBoolean CellKind = "boolean"
	KindDate    CellKind = "date"
	KindEnum    CellKind = "enum"
	KindNested  CellKind = "nested"
)

// PropertySpec describes a single property of a resource schema. Nested
// object properties carry their children in Properties.
type PropertySpec struct {
	Name       string                   `json:"name"`
	Kind       CellKind                 `json:"kind"`
	Format     string                   `json:"format,omitempty"`
	Enum       []string                 `json:"enum,omitempty"`
	ReadOnly   bool                     `json:"readOnly,omitempty"`
	Properties map[string]*PropertySpec `json:"properties,omitempty"`
}

// ResourceSchema is the schema of a single commerce resource as derived from
// the platform's OpenAPI document. It is read-only within this system.
type ResourceSchema struct {
	Name           string
	Properties     map[string]*PropertySpec
	Required       []string
	RequiredParams []string
}

// ColumnDefinition is one table column derived from a schema property.
// Path holds the nesting path for dotted column IDs such as "xp.Color".
type ColumnDefinition struct {
	ID     string   `json:"id"`
	Header string   `json:"header"`
	Kind   CellKind `json:"kind"`
	Path   []string `json:"path"`
}

// Projection is the full output of projecting a resource schema into table
// metadata. Columns are ordered; Visibility covers every column ID.
type Projection struct {
	Resource           string                  `json:"resource"`
	Properties         map[string]PropertySpec `json:"properties"`
	ColumnHeaders      []string                `json:"columnHeaders"`
	RequiredParameters []string                `json:"requiredParameters"`
	Columns            []ColumnDefinition      `json:"columns"`
	Visibility         map[string]bool         `json:"visibility"`
}

// SortEntry is a single sort instruction for the list view.
type SortEntry struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// ListQueryState is the table state carried in the URL query string. The URL
// is authoritative; this struct is a derived cache rebuilt on navigation.
type ListQueryState struct {
	PageIndex int               `json:"pageIndex"`
	PageSize  int               `json:"pageSize"`
	Sort      []SortEntry       `json:"sort"`
	Filters   map[string]string `json:"filters"`
}

// ListDescriptor is everything a client needs to render a resource list:
// projected columns, current table state, and gated actions.
type ListDescriptor struct {
	Resource      string         `json:"resource"`
	Allowed       bool           `json:"allowed"`
	Admin         bool           `json:"admin"`
	ReadOnly      bool           `json:"readOnly"`
	CreateEnabled bool           `json:"createEnabled"`
	DeleteEnabled bool           `json:"deleteEnabled"`
	Projection    Projection     `json:"projection"`
	State         ListQueryState `json:"state"`
}

// ResourcePage is one page of resource items returned by the commerce API.
type ResourcePage struct {
	Items []map[string]any `json:"Items"`
	Meta  PageMeta         `json:"Meta"`
}

// PageMeta is the commerce API's paging envelope.
type PageMeta struct {
	Page       int `json:"Page"`
	PageSize   int `json:"PageSize"`
	TotalCount int `json:"TotalCount"`
	TotalPages int `json:"TotalPages"`
}
