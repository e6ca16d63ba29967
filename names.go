package dbscaf

// Driver names.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Relation styles: how generated artifacts render relationship fields.
const (
	StylePK     = "pk"     // reference by primary key value
	StyleLink   = "link"   // reference by resource URL
	StyleNested = "nested" // embed the related representation
)

// Language names.
const (
	LangGo = "go"
)

// Artifact kinds.
const (
	ArtifactModel       = "model"
	ArtifactTransformer = "transformer"
	ArtifactHandler     = "handler"
	ArtifactRoutes      = "routes"
	ArtifactAdmin       = "admin"
	ArtifactAPIDoc      = "apidoc"
	ArtifactScaffold    = "scaffold"
)

// RelationStyles lists the recognized relation styles.
var RelationStyles = []string{StylePK, StyleLink, StyleNested}

// KnownRelationStyle reports whether style is a recognized relation style.
func KnownRelationStyle(style string) bool {
	for _, s := range RelationStyles {
		if s == style {
			return true
		}
	}

	return false
}
