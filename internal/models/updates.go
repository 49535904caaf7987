package models

// UserUpdate lists the user fields an admin may change. Nil fields are left untouched.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.FullName == nil && u.IsActive == nil && u.Role == nil
}

// CourseUpdate lists the course fields an instructor may change. Nil fields are left untouched.
type CourseUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Level       *Level        `json:"level,omitempty"`
	Price       *float64      `json:"price,omitempty"`
	Status      *CourseStatus `json:"status,omitempty"`
	IsFeatured  *bool         `json:"is_featured,omitempty"`
	Thumbnail   *string       `json:"thumbnail,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u CourseUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil && u.Level == nil &&
		u.Price == nil && u.Status == nil && u.IsFeatured == nil && u.Thumbnail == nil
}

// CourseFilter narrows the public course listing. Category and Search combine with AND.
type CourseFilter struct {
	Category string
	Search   string
	Page     Page
}
