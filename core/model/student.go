package model

// Student is a read-only record from the school directory.
type Student struct {
	ID         string `json:"id"`
	FirstName  string `json:"fname"`
	LastName   string `json:"lname"`
	StudentID  string `json:"student_id"`
	Class      string `json:"class,omitempty"`
	SchoolName string `json:"school_name,omitempty"`
}

// FullName joins the first and last name.
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// School returns the student's school, or UnknownSchool when it is not set.
func (s Student) School() string {
	if s.SchoolName == "" {
		return UnknownSchool
	}
	return s.SchoolName
}
