package models

// Versioned is embedded by every row guarded by optimistic locking.
type Versioned struct {
	RowVersion int64 `json:"row_version"`
}

func (v *Versioned) GetRowVersion() int64 {
	return v.RowVersion
}

func (v *Versioned) SetRowVersion(n int64) {
	v.RowVersion = n
}
