package database

import "fmt"

// Record is the persisted unit: the image payload plus its encoded metadata
type Record struct {
	ID    string `db:"id"`
	Data  []byte `db:"data"`     // stored base64 encoded, the table has no binary column
	Meta  string `db:"mimetype"` // encoded metadata field
	Views int64  `db:"views"`
}

// Column names of the images table
const (
	FieldID    = "id"
	FieldData  = "data"
	FieldMeta  = "mimetype"
	FieldViews = "views"
)

var allFields = []string{FieldID, FieldData, FieldMeta, FieldViews}

// OrderBy selects the sort order of ListRange
type OrderBy string

const (
	OrderByIDDesc    OrderBy = "id_desc"
	OrderByIDAsc     OrderBy = "id_asc"
	OrderByViewsDesc OrderBy = "views_desc"
)

func (o OrderBy) clause() (string, error) {
	switch o {
	case OrderByIDDesc, "":
		return "id DESC", nil
	case OrderByIDAsc:
		return "id ASC", nil
	case OrderByViewsDesc:
		return "views DESC, id DESC", nil
	default:
		return "", fmt.Errorf("unsupported order: %s", o)
	}
}
