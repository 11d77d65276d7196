package browser

import "fmt"

// Selector is one strategy for locating an element on a page. The concrete
// types are CSS, Text and Role; drivers switch on them to build a query.
type Selector interface {
	fmt.Stringer
	selector()
}

// CSS matches elements by a CSS/attribute selector, e.g. "input[name='email']".
type CSS struct {
	Pattern string
}

// Text matches elements whose visible text contains Text
// (case-insensitive, whitespace-normalised). Tag narrows the candidates
// with a CSS selector, usually just an element name; empty means any.
type Text struct {
	Tag  string
	Text string
}

// Role matches elements by ARIA role and accessible name.
type Role struct {
	Role string
	Name string
}

func (CSS) selector()  {}
func (Text) selector() {}
func (Role) selector() {}

func (s CSS) String() string { return "css=" + s.Pattern }

func (s Text) String() string {
	tag := s.Tag
	if tag == "" {
		tag = "*"
	}
	return fmt.Sprintf("text=%s:%q", tag, s.Text)
}

func (s Role) String() string {
	if s.Name == "" {
		return "role=" + s.Role
	}
	return fmt.Sprintf("role=%s[name=%q]", s.Role, s.Name)
}
