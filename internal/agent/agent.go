// Package agent names the instructional roles that share a study session and
// the two modes a session can run in.
package agent

import "strings"

// Role identifies who authored a transcript turn or leads a session.
type Role string

const (
	Student       Role = "student"
	Tutor         Role = "tutor"
	Teacher       Role = "teacher"
	PerfectScorer Role = "perfectScorer"
)

// IsInstructor reports whether the role is one of the agent roles rather
// than the student.
func (r Role) IsInstructor() bool {
	return r != "" && !strings.EqualFold(string(r), string(Student))
}

// Label returns a human-readable name for the role.
func (r Role) Label() string {
	switch r {
	case Tutor:
		return "tutor"
	case Teacher:
		return "teacher"
	case PerfectScorer:
		return "perfect scorer"
	case Student:
		return "student"
	default:
		return string(r)
	}
}

// Mode is the instructional mode of a session.
type Mode string

const (
	Learning Mode = "learning"
	Practice Mode = "practice"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Learning || m == Practice
}
