package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the access level of a user account.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTutor      Role = "tutor"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a stored or submitted role value.
func ParseRole(value string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(value))); r {
	case RoleStudent, RoleTutor, RoleInstructor, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role %q", value)
	}
}

// CanTeach reports whether the role may author courses and upload content.
func (r Role) CanTeach() bool {
	return r == RoleTutor || r == RoleInstructor || r == RoleAdmin
}

// Scan implements sql.Scanner and rejects values outside the enumerated set.
func (r *Role) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan role: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	return string(r), nil
}

// Level is the difficulty label of a course.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelAllLevels    Level = "All Levels"
)

// ParseLevel validates a course level. Matching is case-insensitive.
func ParseLevel(value string) (Level, error) {
	v := strings.TrimSpace(value)
	for _, l := range []Level{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelAllLevels} {
		if strings.EqualFold(v, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid course level %q", value)
}

// Scan implements sql.Scanner.
func (l *Level) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan level: %w", err)
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Value implements driver.Valuer.
func (l Level) Value() (driver.Value, error) {
	return string(l), nil
}

// CourseStatus is the publication state of a course.
type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

// ParseCourseStatus validates a publication state.
func ParseCourseStatus(value string) (CourseStatus, error) {
	switch s := CourseStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case CourseDraft, CoursePublished, CourseArchived:
		return s, nil
	default:
		return "", fmt.Errorf("invalid course status %q", value)
	}
}

// Scan implements sql.Scanner.
func (s *CourseStatus) Scan(src any) error {
	str, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan course status: %w", err)
	}
	parsed, err := ParseCourseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s CourseStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// LoginStatus is the outcome recorded for a login attempt.
type LoginStatus string

const (
	LoginSuccess LoginStatus = "success"
	LoginFailed  LoginStatus = "failed"
)

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("unexpected NULL")
	default:
		return "", fmt.Errorf("unsupported type %T", src)
	}
}
