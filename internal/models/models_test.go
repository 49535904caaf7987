package models

import "testing"

func TestParseRole(t *testing.T) {
	for _, value := range []string{"student", "tutor", "Instructor", " admin "} {
		if _, err := ParseRole(value); err != nil {
			t.Fatalf("ParseRole(%q) error = %v", value, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestRoleScanRejectsUnknownValues(t *testing.T) {
	var r Role
	if err := r.Scan([]byte("tutor")); err != nil || r != RoleTutor {
		t.Fatalf("Scan(tutor) = %v, role %q", err, r)
	}
	if err := r.Scan("root"); err == nil {
		t.Fatal("expected scan error for unknown role")
	}
	if err := r.Scan(nil); err == nil {
		t.Fatal("expected scan error for NULL role")
	}
}

func TestRoleCanTeach(t *testing.T) {
	if RoleStudent.CanTeach() {
		t.Fatal("students cannot teach")
	}
	for _, r := range []Role{RoleTutor, RoleInstructor, RoleAdmin} {
		if !r.CanTeach() {
			t.Fatalf("expected %s to teach", r)
		}
	}
}

func TestParseLevelIsCaseInsensitive(t *testing.T) {
	level, err := ParseLevel("all levels")
	if err != nil {
		t.Fatalf("ParseLevel error = %v", err)
	}
	if level != LevelAllLevels {
		t.Fatalf("unexpected level %q", level)
	}
	if _, err := ParseLevel("Expert"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestParseCourseStatus(t *testing.T) {
	if s, err := ParseCourseStatus("Published"); err != nil || s != CoursePublished {
		t.Fatalf("ParseCourseStatus = %q, %v", s, err)
	}
	if _, err := ParseCourseStatus("hidden"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestPageNormalize(t *testing.T) {
	p := Page{Number: 0, PerPage: 1000}.Normalize()
	if p.Number != 1 || p.PerPage != MaxPerPage {
		t.Fatalf("unexpected normalized page %+v", p)
	}
	if off := (Page{Number: 3, PerPage: 10}).Offset(); off != 20 {
		t.Fatalf("Offset() = %d, want 20", off)
	}
	if limit := (Page{}).Limit(); limit != DefaultPerPage {
		t.Fatalf("Limit() = %d, want %d", limit, DefaultPerPage)
	}
}
