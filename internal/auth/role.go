package auth

// Role is the single label derived for a request identity.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTutor     Role = "tutor"
	RoleStudent   Role = "student"
	RoleAnonymous Role = "anonymous"
)

// Well-known group names consumed by role resolution.
const (
	GroupStudents = "Students"
	GroupTutors   = "Tutors"
)

// Elevated reports whether the role may mark attendance and edit records.
func (r Role) Elevated() bool {
	return r == RoleTutor || r == RoleAdmin
}

// ResolveRole maps a platform user and its group memberships to exactly one
// role. Rules are evaluated in precedence order and the first match wins:
// staff/superuser standing, Tutors group, Students group, then student as
// the fallback for any other authenticated identity. A nil user is anonymous.
func ResolveRole(u *PlatformUser, groups []string) Role {
	if u == nil {
		return RoleAnonymous
	}
	switch {
	case u.IsSuperuser || u.IsStaff:
		return RoleAdmin
	case hasGroup(groups, GroupTutors):
		return RoleTutor
	case hasGroup(groups, GroupStudents):
		return RoleStudent
	default:
		return RoleStudent
	}
}

func hasGroup(groups []string, name string) bool {
	for _, g := range groups {
		if g == name {
			return true
		}
	}
	return false
}
